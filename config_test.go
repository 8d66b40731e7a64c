package authsession

import "testing"

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "defaults valid",
			mutate:    func(*Config) {},
			wantValid: true,
		},
		{
			name: "blank login endpoint invalid",
			mutate: func(c *Config) {
				c.Endpoints.Login = "  "
			},
			wantValid: false,
		},
		{
			name: "blank change password endpoint invalid",
			mutate: func(c *Config) {
				c.Endpoints.ChangePassword = ""
			},
			wantValid: false,
		},
		{
			name: "absolute endpoint valid",
			mutate: func(c *Config) {
				c.Endpoints.Profile = "https://auth.example.com/me"
			},
			wantValid: true,
		},
		{
			name: "empty token key invalid",
			mutate: func(c *Config) {
				c.Store.TokenKey = ""
			},
			wantValid: false,
		},
		{
			name: "scheme with space invalid",
			mutate: func(c *Config) {
				c.Header.Scheme = "Bearer x"
			},
			wantValid: false,
		},
		{
			name: "custom scheme valid",
			mutate: func(c *Config) {
				c.Header.Scheme = "Token"
			},
			wantValid: true,
		},
		{
			name: "empty message invalid",
			mutate: func(c *Config) {
				c.Messages.ProfileFailed = ""
			},
			wantValid: false,
		},
		{
			name: "call order valid",
			mutate: func(c *Config) {
				c.Sequencing = SequenceCallOrder
			},
			wantValid: true,
		},
		{
			name: "unknown sequencing invalid",
			mutate: func(c *Config) {
				c.Sequencing = SequencingPolicy(9)
			},
			wantValid: false,
		},
		{
			name: "unknown profile policy invalid",
			mutate: func(c *Config) {
				c.ProfileFailure = ProfileFailurePolicy(9)
			},
			wantValid: false,
		},
		{
			name: "negative audit buffer invalid",
			mutate: func(c *Config) {
				c.Audit.BufferSize = -1
			},
			wantValid: false,
		},
		{
			name: "histograms without metrics invalid",
			mutate: func(c *Config) {
				c.Metrics.Enabled = false
				c.Metrics.EnableLatencyHistograms = true
			},
			wantValid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantValid && err != nil {
				t.Fatalf("expected valid config, got %v", err)
			}
			if !tt.wantValid && err == nil {
				t.Fatal("expected invalid config")
			}
		})
	}
}

func TestDefaultConfigMatchesServiceContract(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Endpoints.Login != "/api/auth/login" ||
		cfg.Endpoints.Register != "/api/auth/register" ||
		cfg.Endpoints.Profile != "/api/auth/profile" {
		t.Fatalf("unexpected endpoints %+v", cfg.Endpoints)
	}
	if cfg.Store.TokenKey != "token" || cfg.Header.Scheme != "Bearer" {
		t.Fatalf("unexpected store/header config %+v %+v", cfg.Store, cfg.Header)
	}
	if cfg.Sequencing != SequenceCompletionOrder || cfg.ProfileFailure != ProfileFailureLogout {
		t.Fatalf("unexpected policies %v %v", cfg.Sequencing, cfg.ProfileFailure)
	}
}

func TestNilConfigValidate(t *testing.T) {
	var cfg *Config
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected nil config to be invalid")
	}
}
