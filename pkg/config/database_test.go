package config

import "testing"

func TestDatabaseConfig_SetDefaults(t *testing.T) {
	tests := []struct {
		name     string
		config   DatabaseConfig
		wantPort int
		wantSSL  string
	}{
		{
			name:     "postgres_defaults",
			config:   DatabaseConfig{Driver: "postgres", Host: "db", Database: "drover"},
			wantPort: 5432,
			wantSSL:  "disable",
		},
		{
			name:     "mysql_defaults",
			config:   DatabaseConfig{Driver: "mysql", Host: "db", Database: "drover"},
			wantPort: 3306,
		},
		{
			name:     "sqlite_no_port",
			config:   DatabaseConfig{Driver: "sqlite", Database: "sessions.db"},
			wantPort: 0,
		},
		{
			name:     "explicit_port_preserved",
			config:   DatabaseConfig{Driver: "postgres", Host: "db", Port: 6432, Database: "drover"},
			wantPort: 6432,
			wantSSL:  "disable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.config.SetDefaults()
			if tt.config.Port != tt.wantPort {
				t.Errorf("Port = %v, want %v", tt.config.Port, tt.wantPort)
			}
			if tt.wantSSL != "" && tt.config.SSLMode != tt.wantSSL {
				t.Errorf("SSLMode = %v, want %v", tt.config.SSLMode, tt.wantSSL)
			}
			if tt.config.MaxConns != 25 {
				t.Errorf("MaxConns = %v, want 25", tt.config.MaxConns)
			}
			if tt.config.MaxIdle != 5 {
				t.Errorf("MaxIdle = %v, want 5", tt.config.MaxIdle)
			}
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	tests := []struct {
		name   string
		config DatabaseConfig
		want   string
	}{
		{
			name: "postgres_full",
			config: DatabaseConfig{
				Driver: "postgres", Host: "db", Port: 5432, Database: "drover",
				Username: "app", Password: "secret", SSLMode: "disable",
			},
			want: "host=db port=5432 dbname=drover user=app password=secret sslmode=disable",
		},
		{
			name: "postgres_no_credentials",
			config: DatabaseConfig{
				Driver: "postgres", Host: "db", Port: 5432, Database: "drover",
			},
			want: "host=db port=5432 dbname=drover",
		},
		{
			name: "mysql",
			config: DatabaseConfig{
				Driver: "mysql", Host: "db", Port: 3306, Database: "drover",
				Username: "app", Password: "secret",
			},
			want: "app:secret@tcp(db:3306)/drover",
		},
		{
			name:   "sqlite_is_path",
			config: DatabaseConfig{Driver: "sqlite", Database: "/tmp/sessions.db"},
			want:   "/tmp/sessions.db",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.config.DSN(); got != tt.want {
				t.Errorf("DSN() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDatabaseConfig_DriverName(t *testing.T) {
	cfg := DatabaseConfig{Driver: "sqlite"}
	if cfg.DriverName() != "sqlite3" {
		t.Errorf("DriverName() = %v, want sqlite3", cfg.DriverName())
	}
	if cfg.Dialect() != "sqlite" {
		t.Errorf("Dialect() = %v, want sqlite", cfg.Dialect())
	}

	cfg = DatabaseConfig{Driver: "sqlite3"}
	if cfg.DriverName() != "sqlite3" {
		t.Errorf("DriverName() = %v, want sqlite3", cfg.DriverName())
	}
	if cfg.Dialect() != "sqlite" {
		t.Errorf("Dialect() = %v, want sqlite", cfg.Dialect())
	}

	cfg = DatabaseConfig{Driver: "postgres"}
	if cfg.DriverName() != "postgres" {
		t.Errorf("DriverName() = %v, want postgres", cfg.DriverName())
	}
}

func TestDatabaseConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  DatabaseConfig
		wantErr bool
	}{
		{
			name:    "valid_sqlite",
			config:  DatabaseConfig{Driver: "sqlite", Database: "sessions.db"},
			wantErr: false,
		},
		{
			name:    "valid_postgres",
			config:  DatabaseConfig{Driver: "postgres", Host: "db", Database: "drover"},
			wantErr: false,
		},
		{
			name:    "unknown_driver",
			config:  DatabaseConfig{Driver: "oracle", Database: "drover"},
			wantErr: true,
		},
		{
			name:    "missing_database",
			config:  DatabaseConfig{Driver: "sqlite"},
			wantErr: true,
		},
		{
			name:    "postgres_missing_host",
			config:  DatabaseConfig{Driver: "postgres", Database: "drover"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
