package models

// APIKey represents a single API key with a title, key, URL, and active status.
type APIKey struct {
	Title  string `json:"title"`
	Key    string `json:"key"`
	URL    string `json:"url,omitempty"`
	Active bool   `json:"active"`
}

// APIKeysConfig represents the persisted set of API keys.
type APIKeysConfig struct {
	Keys []APIKey `json:"keys"`
}
