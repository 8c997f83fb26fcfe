package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/angelmondragon/dmmedia/internal/transport"
	pkgerrors "github.com/angelmondragon/dmmedia/pkg/errors"
	"github.com/angelmondragon/dmmedia/pkg/logger"
)

// Lookup fetches the user id for a screen name from the remote service.
type Lookup func(ctx context.Context, screenName string) (string, error)

// Resolver memoises Lookup through a Cache. Cache failures degrade to a direct lookup.
type Resolver struct {
	cache  Cache
	lookup Lookup
	logg   *logger.Logger
}

func NewResolver(cache Cache, lookup Lookup, logg *logger.Logger) (*Resolver, error) {
	if cache == nil {
		return nil, fmt.Errorf("identity cache required")
	}
	if lookup == nil {
		return nil, fmt.Errorf("identity lookup required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Resolver{cache: cache, lookup: lookup, logg: logg}, nil
}

// UserID returns the numeric id of screenName, consulting the cache first.
func (r *Resolver) UserID(ctx context.Context, screenName string) (string, error) {
	key := normalizeScreenName(screenName)
	if key == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "screen name is required")
	}
	ctx = r.logg.WithField(ctx, "screen_name", key)

	if cached, ok, err := r.cache.Get(ctx, key); err != nil {
		r.logg.Warn(r.logg.WithField(ctx, "error", err.Error()), "identity cache read failed")
	} else if ok {
		return cached, nil
	}

	userID, err := r.lookup(ctx, key)
	if err != nil {
		return "", err
	}
	if err := r.cache.Set(ctx, key, userID); err != nil {
		r.logg.Warn(r.logg.WithField(ctx, "error", err.Error()), "identity cache write failed")
	}
	return userID, nil
}

func normalizeScreenName(value string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(value), "@"))
}

// ProfileLookup resolves screen names through users/show.json.
type ProfileLookup struct {
	requester transport.Requester
	baseURL   string
}

func NewProfileLookup(requester transport.Requester, baseURL string) *ProfileLookup {
	return &ProfileLookup{requester: requester, baseURL: strings.TrimRight(baseURL, "/")}
}

// Lookup satisfies the Lookup signature.
func (p *ProfileLookup) Lookup(ctx context.Context, screenName string) (string, error) {
	query := url.Values{}
	query.Set("screen_name", screenName)

	resp, err := p.requester.Send(ctx, &transport.Request{
		Method: http.MethodGet,
		URL:    p.baseURL + "/users/show.json?" + query.Encode(),
	})
	if err != nil {
		code := pkgerrors.CodeDependency
		var apiErr *transport.APIError
		if errors.As(err, &apiErr) {
			code = apiErr.ErrorCode()
		}
		return "", pkgerrors.Wrap(code, err, "lookup user profile")
	}

	var profile struct {
		IDStr string `json:"id_str"`
	}
	if err := resp.DecodeJSON(&profile); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode user profile")
	}
	if profile.IDStr == "" {
		return "", pkgerrors.New(pkgerrors.CodeNotFound, "user profile has no id").
			WithDetails(map[string]any{"screen_name": screenName})
	}
	return profile.IDStr, nil
}
