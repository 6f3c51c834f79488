package gmail

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailapi "google.golang.org/api/gmail/v1"
)

// Scopes requested for reading the inbox and modifying labels.
var scopes = []string{
	gmailapi.GmailReadonlyScope,
	gmailapi.GmailModifyScope,
}

// Authenticate builds an OAuth2-authorized HTTP client. Credentials come
// from the Google Cloud Console client secrets file; the exchanged token is
// cached at tokenPath and refreshed automatically on later runs.
func Authenticate(ctx context.Context, credentialsPath, tokenPath string) (*http.Client, error) {
	data, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read client secrets file %s", credentialsPath)
	}

	config, err := google.ConfigFromJSON(data, scopes...)
	if err != nil {
		return nil, errors.Wrap(err, "unable to parse client secrets file")
	}

	token, err := tokenFromFile(tokenPath)
	if err != nil {
		token, err = tokenFromWeb(ctx, config)
		if err != nil {
			return nil, err
		}
		if err := saveToken(tokenPath, token); err != nil {
			return nil, err
		}
	}

	return config.Client(ctx, token), nil
}

// tokenFromWeb runs the out-of-band authorization flow: print the consent
// URL, read the pasted authorization code, exchange it for a token.
func tokenFromWeb(ctx context.Context, config *oauth2.Config) (*oauth2.Token, error) {
	authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Printf("Go to the following link in your browser then type the authorization code:\n%v\n", authURL)

	var code string
	if _, err := fmt.Scan(&code); err != nil {
		return nil, errors.Wrap(err, "unable to read authorization code")
	}

	token, err := config.Exchange(ctx, code)
	if err != nil {
		return nil, errors.Wrap(err, "unable to exchange authorization code")
	}
	return token, nil
}

func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	token := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(token); err != nil {
		return nil, err
	}
	return token, nil
}

func saveToken(path string, token *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return errors.Wrapf(err, "unable to cache oauth token at %s", path)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}
