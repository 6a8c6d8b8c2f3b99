package config

import "os"

// APIKeySource represents where an API key comes from.
type APIKeySource string

const (
	KeySourceEnv    APIKeySource = "env"
	KeySourceConfig APIKeySource = "config"
	KeySourceNone   APIKeySource = "none"
)

// KeyStatus represents the status of a secret setting.
type KeyStatus struct {
	Name   string       `json:"name"`
	Source APIKeySource `json:"source"`
	IsSet  bool         `json:"is_set"`
	Masked string       `json:"masked,omitempty"` // e.g., "hf_...abc"
}

// CheckAPIKeys returns the status of all secret settings.
func CheckAPIKeys(cfg *Config) []KeyStatus {
	return []KeyStatus{
		checkKey("HuggingFace Token", cfg.Classifier.HuggingFace.Token, "SENTINEWS_CLASSIFIER_HUGGINGFACE_TOKEN", "HF_TOKEN"),
		checkKey("OpenAI API Key", cfg.Classifier.OpenAI.Key, "SENTINEWS_CLASSIFIER_OPENAI_KEY", "OPENAI_API_KEY"),
		checkKey("Redis Password", cfg.Cache.Redis.Password, "SENTINEWS_CACHE_REDIS_PASSWORD"),
		checkKey("Store DSN", cfg.Store.DSN, "SENTINEWS_STORE_DSN"),
	}
}

// checkKey checks if a key is set and where it came from.
func checkKey(name, value string, envVars ...string) KeyStatus {
	status := KeyStatus{
		Name:  name,
		IsSet: value != "",
	}

	if value == "" {
		status.Source = KeySourceNone
		return status
	}

	status.Source = KeySourceConfig
	for _, env := range envVars {
		if os.Getenv(env) == value {
			status.Source = KeySourceEnv
			break
		}
	}
	status.Masked = maskKey(value)
	return status
}

// maskKey masks a secret for display, showing only first 3 and last 3 chars.
func maskKey(key string) string {
	if len(key) <= 8 {
		return "***"
	}
	return key[:3] + "..." + key[len(key)-3:]
}

// Redacted returns a copy of cfg with every secret replaced by its masked
// form, safe to return from the API.
func (c *Config) Redacted() *Config {
	out := *c
	out.Classifier.HuggingFace.Token = redact(c.Classifier.HuggingFace.Token)
	out.Classifier.OpenAI.Key = redact(c.Classifier.OpenAI.Key)
	out.Cache.Redis.Password = redact(c.Cache.Redis.Password)
	out.Store.DSN = redact(c.Store.DSN)
	out.API.CORSOrigins = append([]string(nil), c.API.CORSOrigins...)
	out.Language.Candidates = append([]string(nil), c.Language.Candidates...)
	return &out
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return maskKey(s)
}
