// Package social exchanges Facebook login codes for Graph API profiles.
package social

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"profiles-api/internal/adapters/httpx"
)

// ErrInvalidCode is returned when Facebook rejects the login code
var ErrInvalidCode = errors.New("facebook login code rejected")

// DefaultPictureSize is the square size requested for profile pictures
const DefaultPictureSize = 400

// Profile is the Graph API view of a Facebook user
type Profile struct {
	ID         string
	Name       string
	FirstName  string
	LastName   string
	Email      string
	PictureURL string
}

// Provider resolves a login code into a profile and downloads pictures
type Provider interface {
	ProfileFromCode(ctx context.Context, code string) (*Profile, error)
	FetchPicture(ctx context.Context, pictureURL string) ([]byte, error)
	Ping(ctx context.Context) error
}

// Config configures the Graph client
type Config struct {
	AppID       string
	AppSecret   string
	GraphURL    string
	RedirectURI string
	PictureSize int
	Timeout     time.Duration
	Logger      *logrus.Logger
}

// FacebookClient implements Provider against the Graph API
type FacebookClient struct {
	graph *httpx.Client
	files *httpx.Client
	cfg   Config
}

// NewFacebookClient creates a Graph API client
func NewFacebookClient(cfg Config) (*FacebookClient, error) {
	if cfg.GraphURL == "" {
		return nil, fmt.Errorf("facebook graph url is required")
	}
	if cfg.PictureSize <= 0 {
		cfg.PictureSize = DefaultPictureSize
	}

	return &FacebookClient{
		graph: httpx.New(httpx.Config{
			Service:           "facebook",
			BaseURL:           cfg.GraphURL,
			Timeout:           cfg.Timeout,
			MaxAttempts:       2,
			RequestsPerSecond: 20,
			Logger:            cfg.Logger,
		}),
		files: httpx.New(httpx.Config{
			Service:     "facebook_cdn",
			Timeout:     cfg.Timeout,
			MaxAttempts: 3,
			Logger:      cfg.Logger,
		}),
		cfg: cfg,
	}, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

type graphProfile struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Picture   struct {
		Data struct {
			URL          string `json:"url"`
			IsSilhouette bool   `json:"is_silhouette"`
		} `json:"data"`
	} `json:"picture"`
}

// ProfileFromCode exchanges code for an access token and reads the user's
// profile with it
func (c *FacebookClient) ProfileFromCode(ctx context.Context, code string) (*Profile, error) {
	if code == "" {
		return nil, ErrInvalidCode
	}

	var token tokenResponse
	err := c.graph.DoJSON(ctx, "exchange_code", httpx.Request{
		Path: "/oauth/access_token",
		Query: url.Values{
			"client_id":     {c.cfg.AppID},
			"client_secret": {c.cfg.AppSecret},
			"redirect_uri":  {c.cfg.RedirectURI},
			"code":          {code},
		},
	}, &token)
	if err != nil {
		var httpErr *httpx.Error
		if errors.As(err, &httpErr) && httpErr.Code == httpx.ErrCodeValidation {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCode, err)
		}
		return nil, err
	}
	if token.AccessToken == "" {
		return nil, ErrInvalidCode
	}

	size := strconv.Itoa(c.cfg.PictureSize)
	var me graphProfile
	err = c.graph.DoJSON(ctx, "get_profile", httpx.Request{
		Path: "/me",
		Query: url.Values{
			"fields":       {"id,name,email,first_name,last_name,picture.width(" + size + ").height(" + size + ")"},
			"access_token": {token.AccessToken},
		},
	}, &me)
	if err != nil {
		return nil, err
	}
	if me.ID == "" {
		return nil, fmt.Errorf("facebook profile has no id")
	}

	profile := &Profile{
		ID:        me.ID,
		Name:      me.Name,
		FirstName: me.FirstName,
		LastName:  me.LastName,
		Email:     me.Email,
	}
	if !me.Picture.Data.IsSilhouette {
		profile.PictureURL = me.Picture.Data.URL
	}
	return profile, nil
}

// FetchPicture downloads a picture from an absolute URL
func (c *FacebookClient) FetchPicture(ctx context.Context, pictureURL string) ([]byte, error) {
	if pictureURL == "" {
		return nil, fmt.Errorf("picture url is required")
	}
	return c.files.Do(ctx, "fetch_picture", httpx.Request{Path: pictureURL})
}

// Ping requests an app access token, which proves the app credentials and
// Graph reachability
func (c *FacebookClient) Ping(ctx context.Context) error {
	var token tokenResponse
	return c.graph.DoJSON(ctx, "ping", httpx.Request{
		Path: "/oauth/access_token",
		Query: url.Values{
			"client_id":     {c.cfg.AppID},
			"client_secret": {c.cfg.AppSecret},
			"grant_type":    {"client_credentials"},
		},
	}, &token)
}
