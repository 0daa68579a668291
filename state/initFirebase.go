package state

import (
	"context"
	"encoding/json"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
)

type FirebaseCredentials struct {
	ProjectID       string
	ClientEmail     string
	PrivateKey      string
	CredentialsFile string
}

type serviceAccount struct {
	Type        string `json:"type"`
	ProjectID   string `json:"project_id"`
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
	TokenURI    string `json:"token_uri"`
}

func InitFirebase(ctx context.Context, creds FirebaseCredentials) (*firebase.App, error) {
	var opt option.ClientOption
	if creds.CredentialsFile != "" {
		opt = option.WithCredentialsFile(creds.CredentialsFile)
	} else {
		raw, err := json.Marshal(serviceAccount{
			Type:        "service_account",
			ProjectID:   creds.ProjectID,
			ClientEmail: creds.ClientEmail,
			PrivateKey:  creds.PrivateKey,
			TokenURI:    "https://oauth2.googleapis.com/token",
		})
		if err != nil {
			return nil, fmt.Errorf("failed to encode firebase credentials: %w", err)
		}
		opt = option.WithCredentialsJSON(raw)
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: creds.ProjectID}, opt)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}

	log.Info().Str("project_id", creds.ProjectID).Msg("Firebase app initialized")
	return app, nil
}
