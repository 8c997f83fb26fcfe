package identity

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/angelmondragon/dmmedia/internal/transport"
	pkgerrors "github.com/angelmondragon/dmmedia/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokenCache struct{}

func (brokenCache) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("cache down")
}

func (brokenCache) Set(context.Context, string, string) error {
	return errors.New("cache down")
}

func TestResolverMemoisesLookups(t *testing.T) {
	calls := 0
	lookup := func(ctx context.Context, screenName string) (string, error) {
		calls++
		assert.Equal(t, "jack", screenName)
		return "12", nil
	}
	resolver, err := NewResolver(NewMemoryCache(8, 0), lookup, nil)
	require.NoError(t, err)

	for _, name := range []string{"jack", "@Jack", " JACK "} {
		id, err := resolver.UserID(context.Background(), name)
		require.NoError(t, err)
		assert.Equal(t, "12", id)
	}
	assert.Equal(t, 1, calls)
}

func TestResolverDegradesOnCacheFailure(t *testing.T) {
	calls := 0
	resolver, err := NewResolver(brokenCache{}, func(ctx context.Context, screenName string) (string, error) {
		calls++
		return "12", nil
	}, nil)
	require.NoError(t, err)

	id, err := resolver.UserID(context.Background(), "jack")
	require.NoError(t, err)
	assert.Equal(t, "12", id)
	assert.Equal(t, 1, calls)
}

func TestResolverRejectsEmptyName(t *testing.T) {
	resolver, err := NewResolver(NewMemoryCache(1, 0), func(context.Context, string) (string, error) {
		t.Fatal("lookup must not run")
		return "", nil
	}, nil)
	require.NoError(t, err)

	_, err = resolver.UserID(context.Background(), " @ ")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestResolverDoesNotCacheFailures(t *testing.T) {
	cache := NewMemoryCache(4, 0)
	resolver, err := NewResolver(cache, func(context.Context, string) (string, error) {
		return "", pkgerrors.New(pkgerrors.CodeNotFound, "no such user")
	}, nil)
	require.NoError(t, err)

	_, err = resolver.UserID(context.Background(), "ghost")
	require.Error(t, err)
	assert.Zero(t, cache.Len())
}

func TestProfileLookup(t *testing.T) {
	var captured *transport.Request
	requester := transport.RequesterFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
		captured = req
		return &transport.Response{StatusCode: http.StatusOK, Body: []byte(`{"id_str":"783214","screen_name":"twitter"}`)}, nil
	})

	id, err := NewProfileLookup(requester, "https://api.example.com/1.1/").Lookup(context.Background(), "twitter")
	require.NoError(t, err)
	assert.Equal(t, "783214", id)
	assert.Equal(t, http.MethodGet, captured.Method)
	assert.Equal(t, "https://api.example.com/1.1/users/show.json?screen_name=twitter", captured.URL)
}

func TestProfileLookupClassifiesErrors(t *testing.T) {
	requester := transport.RequesterFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
		return nil, &transport.APIError{StatusCode: http.StatusNotFound, Status: "404 Not Found"}
	})
	_, err := NewProfileLookup(requester, "https://api.example.com/1.1").Lookup(context.Background(), "ghost")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	empty := transport.RequesterFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
		return &transport.Response{StatusCode: http.StatusOK, Body: []byte(`{}`)}, nil
	})
	_, err = NewProfileLookup(empty, "https://api.example.com/1.1").Lookup(context.Background(), "ghost")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
