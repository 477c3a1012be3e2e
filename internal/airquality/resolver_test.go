package airquality

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePaginatesDirectory(t *testing.T) {
	// 2500 stations at limit 1000 means exactly three pages.
	src := &fakeSource{
		locationsFn: func(iso string, limit, page int) (*StationPage, error) {
			require.Equal(t, "DE", iso)
			stations := []Station{
				{ID: page*10 + 1, Locality: "Berlin"},
				{ID: page*10 + 2, Locality: "Hamburg"},
			}
			return &StationPage{Stations: stations, Found: 2500, Limit: 1000}, nil
		},
	}
	resolver := NewLocationResolver(src, nil, zerolog.Nop())

	stations, err := resolver.Resolve(context.Background(), "DE", "Berlin")
	require.NoError(t, err)

	assert.Equal(t, 3, src.locationCalls)
	require.Len(t, stations, 3)
	assert.Equal(t, []Station{
		{ID: 11, Locality: "Berlin"},
		{ID: 21, Locality: "Berlin"},
		{ID: 31, Locality: "Berlin"},
	}, stations)
}

func TestResolveEmptyDirectoryIsNotAnError(t *testing.T) {
	src := &fakeSource{
		locationsFn: func(iso string, limit, page int) (*StationPage, error) {
			return &StationPage{Found: 0, Limit: 1000}, nil
		},
	}
	resolver := NewLocationResolver(src, nil, zerolog.Nop())

	stations, err := resolver.Resolve(context.Background(), "MT", "Valletta")
	require.NoError(t, err)
	assert.Empty(t, stations)
	assert.Equal(t, 1, src.locationCalls)
}

func TestResolveFallsBackToRequestedLimit(t *testing.T) {
	// A server that omits meta.limit must not loop forever.
	src := &fakeSource{
		locationsFn: func(iso string, limit, page int) (*StationPage, error) {
			return &StationPage{Found: 400, Limit: 0}, nil
		},
	}
	resolver := NewLocationResolver(src, nil, zerolog.Nop())

	_, err := resolver.Resolve(context.Background(), "FR", "Paris")
	require.NoError(t, err)
	assert.Equal(t, 1, src.locationCalls)
}

func TestResolveMatchesAliasesAndDiacritics(t *testing.T) {
	src := &fakeSource{
		locationsFn: func(iso string, limit, page int) (*StationPage, error) {
			return &StationPage{
				Stations: []Station{
					{ID: 1, Locality: "München"},
					{ID: 2, Locality: "Berlin"},
					{ID: 3, Name: "Muenchen Innenstadt", Locality: ""},
				},
				Found: 3,
				Limit: 1000,
			}, nil
		},
	}
	resolver := NewLocationResolver(src, nil, zerolog.Nop())

	stations, err := resolver.Resolve(context.Background(), "DE", "Munich")
	require.NoError(t, err)
	require.Len(t, stations, 1)
	assert.Equal(t, 1, stations[0].ID)
}

func TestResolvePropagatesDirectoryError(t *testing.T) {
	boom := errors.New("directory unavailable")
	src := &fakeSource{
		locationsFn: func(iso string, limit, page int) (*StationPage, error) {
			return nil, boom
		},
	}
	resolver := NewLocationResolver(src, nil, zerolog.Nop())

	_, err := resolver.Resolve(context.Background(), "DE", "Berlin")
	assert.ErrorIs(t, err, boom)
}
