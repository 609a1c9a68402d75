package config

import (
	"fmt"
	"os"

	supa "github.com/supabase-community/supabase-go"
)

var SupabaseClient *supa.Client

// InitSupabase initializes the Supabase client using environment variables.
// Both the URL and the service key are required; there is no anonymous
// fallback because the pipelines need full table access.
func InitSupabase() error {
	supabaseURL := os.Getenv("SUPABASE_URL")
	supabaseKey := os.Getenv("SUPABASE_SERVICE_KEY")
	if supabaseURL == "" || supabaseKey == "" {
		return fmt.Errorf("SUPABASE_URL and SUPABASE_SERVICE_KEY must be set")
	}

	client, err := supa.NewClient(supabaseURL, supabaseKey, nil)
	if err != nil {
		return fmt.Errorf("initialize Supabase client: %w", err)
	}

	SupabaseClient = client
	return nil
}

// GetSupabaseURL returns the Supabase project URL.
func GetSupabaseURL() string {
	return os.Getenv("SUPABASE_URL")
}

// GetSupabaseServiceKey returns the Supabase service key.
func GetSupabaseServiceKey() string {
	return os.Getenv("SUPABASE_SERVICE_KEY")
}
