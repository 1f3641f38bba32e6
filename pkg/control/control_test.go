package control

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentcorecontrol"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentcorecontrol/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeControlAPI struct {
	versionsOut []*bedrockagentcorecontrol.ListAgentRuntimeVersionsOutput
	versionsIn  []*bedrockagentcorecontrol.ListAgentRuntimeVersionsInput
	versionsErr error

	endpointsOut []*bedrockagentcorecontrol.ListAgentRuntimeEndpointsOutput
	endpointsErr error

	getOut *bedrockagentcorecontrol.GetAgentRuntimeEndpointOutput
	getErr error
	getIn  *bedrockagentcorecontrol.GetAgentRuntimeEndpointInput

	updateOut   *bedrockagentcorecontrol.UpdateAgentRuntimeEndpointOutput
	updateErr   error
	updateIn    *bedrockagentcorecontrol.UpdateAgentRuntimeEndpointInput
	updateCalls int

	createOut   *bedrockagentcorecontrol.CreateAgentRuntimeEndpointOutput
	createErr   error
	createIn    *bedrockagentcorecontrol.CreateAgentRuntimeEndpointInput
	createCalls int
}

func (f *fakeControlAPI) ListAgentRuntimeVersions(ctx context.Context, params *bedrockagentcorecontrol.ListAgentRuntimeVersionsInput, optFns ...func(*bedrockagentcorecontrol.Options)) (*bedrockagentcorecontrol.ListAgentRuntimeVersionsOutput, error) {
	f.versionsIn = append(f.versionsIn, params)
	if f.versionsErr != nil {
		return nil, f.versionsErr
	}
	if len(f.versionsOut) == 0 {
		return &bedrockagentcorecontrol.ListAgentRuntimeVersionsOutput{}, nil
	}
	out := f.versionsOut[0]
	f.versionsOut = f.versionsOut[1:]
	return out, nil
}

func (f *fakeControlAPI) ListAgentRuntimeEndpoints(ctx context.Context, params *bedrockagentcorecontrol.ListAgentRuntimeEndpointsInput, optFns ...func(*bedrockagentcorecontrol.Options)) (*bedrockagentcorecontrol.ListAgentRuntimeEndpointsOutput, error) {
	if f.endpointsErr != nil {
		return nil, f.endpointsErr
	}
	if len(f.endpointsOut) == 0 {
		return &bedrockagentcorecontrol.ListAgentRuntimeEndpointsOutput{}, nil
	}
	out := f.endpointsOut[0]
	f.endpointsOut = f.endpointsOut[1:]
	return out, nil
}

func (f *fakeControlAPI) GetAgentRuntimeEndpoint(ctx context.Context, params *bedrockagentcorecontrol.GetAgentRuntimeEndpointInput, optFns ...func(*bedrockagentcorecontrol.Options)) (*bedrockagentcorecontrol.GetAgentRuntimeEndpointOutput, error) {
	f.getIn = params
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.getOut, nil
}

func (f *fakeControlAPI) UpdateAgentRuntimeEndpoint(ctx context.Context, params *bedrockagentcorecontrol.UpdateAgentRuntimeEndpointInput, optFns ...func(*bedrockagentcorecontrol.Options)) (*bedrockagentcorecontrol.UpdateAgentRuntimeEndpointOutput, error) {
	f.updateIn = params
	f.updateCalls++
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return f.updateOut, nil
}

func (f *fakeControlAPI) CreateAgentRuntimeEndpoint(ctx context.Context, params *bedrockagentcorecontrol.CreateAgentRuntimeEndpointInput, optFns ...func(*bedrockagentcorecontrol.Options)) (*bedrockagentcorecontrol.CreateAgentRuntimeEndpointOutput, error) {
	f.createIn = params
	f.createCalls++
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.createOut, nil
}

func runtimeVersion(version string, status types.AgentRuntimeStatus, updated time.Time) types.AgentRuntime {
	return types.AgentRuntime{
		AgentRuntimeVersion: aws.String(version),
		Status:              status,
		LastUpdatedAt:       aws.Time(updated),
	}
}

func TestLatestVersion(t *testing.T) {
	now := time.Date(2025, 11, 20, 12, 0, 0, 0, time.UTC)
	api := &fakeControlAPI{versionsOut: []*bedrockagentcorecontrol.ListAgentRuntimeVersionsOutput{{
		AgentRuntimes: []types.AgentRuntime{
			runtimeVersion("V3", types.AgentRuntimeStatusReady, now),
			runtimeVersion("V2", types.AgentRuntimeStatusReady, now.Add(-time.Hour)),
			runtimeVersion("V1", types.AgentRuntimeStatusReady, now.Add(-2*time.Hour)),
		},
	}}}
	client := NewWithAPI(api)

	latest, err := client.LatestVersion(context.Background(), "demo-runtime")
	require.NoError(t, err)
	assert.Equal(t, "V3", latest)

	require.Len(t, api.versionsIn, 1)
	assert.Equal(t, "demo-runtime", aws.ToString(api.versionsIn[0].AgentRuntimeId))
}

func TestLatestVersionEmpty(t *testing.T) {
	client := NewWithAPI(&fakeControlAPI{})

	_, err := client.LatestVersion(context.Background(), "demo-runtime")
	require.EqualError(t, err, "no versions found for runtime demo-runtime")
}

func TestListVersionsPaginates(t *testing.T) {
	now := time.Date(2025, 11, 20, 12, 0, 0, 0, time.UTC)
	api := &fakeControlAPI{versionsOut: []*bedrockagentcorecontrol.ListAgentRuntimeVersionsOutput{
		{
			AgentRuntimes: []types.AgentRuntime{runtimeVersion("V3", types.AgentRuntimeStatusReady, now)},
			NextToken:     aws.String("page-2"),
		},
		{
			AgentRuntimes: []types.AgentRuntime{
				runtimeVersion("V2", types.AgentRuntimeStatusReady, now.Add(-time.Hour)),
				runtimeVersion("V1", types.AgentRuntimeStatusReady, now.Add(-2*time.Hour)),
			},
		},
	}}
	client := NewWithAPI(api)

	versions, err := client.ListVersions(context.Background(), "demo-runtime")
	require.NoError(t, err)

	require.Len(t, versions, 3)
	assert.Equal(t, "V3", versions[0].Version)
	assert.Equal(t, "READY", versions[0].Status)
	assert.Equal(t, now, versions[0].LastUpdated)
	assert.Equal(t, "V1", versions[2].Version)

	require.Len(t, api.versionsIn, 2)
	assert.Equal(t, "page-2", aws.ToString(api.versionsIn[1].NextToken))
}

func TestEndpoints(t *testing.T) {
	api := &fakeControlAPI{endpointsOut: []*bedrockagentcorecontrol.ListAgentRuntimeEndpointsOutput{{
		RuntimeEndpoints: []types.AgentRuntimeEndpoint{
			{
				Name:          aws.String("dev"),
				LiveVersion:   aws.String("V3"),
				TargetVersion: aws.String("V3"),
				Status:        types.AgentRuntimeEndpointStatusReady,
			},
			{
				Name:          aws.String("canary"),
				LiveVersion:   aws.String("V2"),
				TargetVersion: aws.String("V3"),
				Status:        types.AgentRuntimeEndpointStatusUpdating,
			},
			{
				Name:          aws.String("prod"),
				LiveVersion:   aws.String("V1"),
				TargetVersion: aws.String("V1"),
				Status:        types.AgentRuntimeEndpointStatusReady,
			},
		},
	}}}
	client := NewWithAPI(api)

	endpoints, err := client.Endpoints(context.Background(), "demo-runtime")
	require.NoError(t, err)

	require.Len(t, endpoints, 3)
	assert.Equal(t, Endpoint{Name: "dev", LiveVersion: "V3", TargetVersion: "V3", Status: "READY"}, endpoints[0])
	assert.Equal(t, Endpoint{Name: "canary", LiveVersion: "V2", TargetVersion: "V3", Status: "UPDATING"}, endpoints[1])
	assert.Equal(t, Endpoint{Name: "prod", LiveVersion: "V1", TargetVersion: "V1", Status: "READY"}, endpoints[2])
}

func TestPromoteUpdatesEndpoint(t *testing.T) {
	api := &fakeControlAPI{updateOut: &bedrockagentcorecontrol.UpdateAgentRuntimeEndpointOutput{
		LiveVersion:   aws.String("V1"),
		TargetVersion: aws.String("V3"),
		Status:        types.AgentRuntimeEndpointStatusUpdating,
	}}
	client := NewWithAPI(api)

	result, err := client.Promote(context.Background(), "demo-runtime", "canary", "V3", PromoteOptions{})
	require.NoError(t, err)

	assert.Equal(t, "demo-runtime", aws.ToString(api.updateIn.AgentRuntimeId))
	assert.Equal(t, "canary", aws.ToString(api.updateIn.EndpointName))
	assert.Equal(t, "V3", aws.ToString(api.updateIn.AgentRuntimeVersion))

	assert.False(t, result.Created)
	assert.False(t, result.DryRun)
	assert.Equal(t, "V1", result.LiveVersion)
	assert.Equal(t, "V3", result.TargetVersion)
	assert.Equal(t, "UPDATING", result.Status)
	assert.Equal(t, 0, api.createCalls)
}

func TestPromoteCreatesMissingEndpoint(t *testing.T) {
	api := &fakeControlAPI{
		updateErr: &types.ResourceNotFoundException{Message: aws.String("no such endpoint")},
		createOut: &bedrockagentcorecontrol.CreateAgentRuntimeEndpointOutput{
			TargetVersion: aws.String("V3"),
			Status:        types.AgentRuntimeEndpointStatusCreating,
		},
	}
	client := NewWithAPI(api)

	result, err := client.Promote(context.Background(), "demo-runtime", "canary", "V3", PromoteOptions{CreateMissing: true})
	require.NoError(t, err)

	assert.Equal(t, 1, api.updateCalls)
	assert.Equal(t, 1, api.createCalls)
	assert.Equal(t, "canary", aws.ToString(api.createIn.Name))
	assert.Equal(t, "V3", aws.ToString(api.createIn.AgentRuntimeVersion))

	assert.True(t, result.Created)
	assert.Equal(t, "CREATING", result.Status)
}

func TestPromoteMissingEndpointFails(t *testing.T) {
	api := &fakeControlAPI{
		updateErr: &types.ResourceNotFoundException{Message: aws.String("no such endpoint")},
	}
	client := NewWithAPI(api)

	_, err := client.Promote(context.Background(), "demo-runtime", "prod", "V3", PromoteOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `endpoint "prod" not found for runtime demo-runtime`)
	assert.Equal(t, 0, api.createCalls)
}

func TestPromoteUpdateErrorPassesThrough(t *testing.T) {
	api := &fakeControlAPI{updateErr: fmt.Errorf("throttled")}
	client := NewWithAPI(api)

	_, err := client.Promote(context.Background(), "demo-runtime", "canary", "V3", PromoteOptions{CreateMissing: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "update endpoint")
	assert.Equal(t, 0, api.createCalls)
}

func TestPromoteDryRun(t *testing.T) {
	api := &fakeControlAPI{getOut: &bedrockagentcorecontrol.GetAgentRuntimeEndpointOutput{
		LiveVersion:   aws.String("V1"),
		TargetVersion: aws.String("V1"),
		Status:        types.AgentRuntimeEndpointStatusReady,
	}}
	client := NewWithAPI(api)

	result, err := client.Promote(context.Background(), "demo-runtime", "canary", "V3", PromoteOptions{DryRun: true})
	require.NoError(t, err)

	assert.Equal(t, "canary", aws.ToString(api.getIn.EndpointName))
	assert.True(t, result.DryRun)
	assert.False(t, result.Created)
	assert.Equal(t, "V1", result.LiveVersion)
	assert.Equal(t, "V3", result.TargetVersion)
	assert.Equal(t, 0, api.updateCalls)
	assert.Equal(t, 0, api.createCalls)
}

func TestPromoteDryRunMissingEndpoint(t *testing.T) {
	api := &fakeControlAPI{
		getErr: &types.ResourceNotFoundException{Message: aws.String("no such endpoint")},
	}
	client := NewWithAPI(api)

	result, err := client.Promote(context.Background(), "demo-runtime", "canary", "V3", PromoteOptions{DryRun: true, CreateMissing: true})
	require.NoError(t, err)

	assert.True(t, result.DryRun)
	assert.True(t, result.Created)
	assert.Equal(t, 0, api.createCalls)

	// Without CreateMissing the dry run surfaces the same error a real
	// promotion would.
	_, err = client.Promote(context.Background(), "demo-runtime", "canary", "V3", PromoteOptions{DryRun: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `endpoint "canary" not found`)
}
