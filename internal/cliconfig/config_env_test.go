package cliconfig

import (
	"testing"
	"time"
)

func TestApplyEnvConfig(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		changed  map[string]bool
		initial  Config
		expected Config
		wantErr  bool
	}{
		{
			name: "applies valid env vars",
			envVars: map[string]string{
				"STATIOND_SSID":                     "lab",
				"STATIOND_PSK":                      "hunter2hunter2",
				"STATIOND_HARD_ABORT":               "40s",
				"STATIOND_MAX_RETRIES":              "3",
				"STATIOND_RESET_RETRIES_ON_SUCCESS": "true",
				"STATIOND_MQTT_BROKER":              "tcp://broker:1883",
			},
			changed: map[string]bool{},
			initial: Config{},
			expected: Config{
				SSID:                  "lab",
				PSK:                   "hunter2hunter2",
				HardAbort:             40 * time.Second,
				MaxRetries:            3,
				ResetRetriesOnSuccess: true,
				MQTTBroker:            "tcp://broker:1883",
			},
		},
		{
			name:     "respects changed flags",
			envVars:  map[string]string{"STATIOND_SSID": "env"},
			changed:  map[string]bool{"ssid": true},
			initial:  Config{SSID: "flag"},
			expected: Config{SSID: "flag"},
		},
		{
			name:     "returns error for invalid duration",
			envVars:  map[string]string{"STATIOND_COOLDOWN": "later"},
			changed:  map[string]bool{},
			initial:  Config{},
			expected: Config{},
			wantErr:  true,
		},
		{
			name:     "returns error for invalid int",
			envVars:  map[string]string{"STATIOND_BUCK_PIN": "seventeen"},
			changed:  map[string]bool{},
			initial:  Config{},
			expected: Config{},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}
			cfg := tt.initial
			err := ApplyEnvConfig(&cfg, tt.changed)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ApplyEnvConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && cfg != tt.expected {
				t.Errorf("ApplyEnvConfig() =\n%+v\nwant\n%+v", cfg, tt.expected)
			}
		})
	}
}
