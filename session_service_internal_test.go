package chatauth

import (
	"testing"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyfuncOptions(t *testing.T) {
	given := map[string]keyfunc.GivenKey{
		"kid": keyfunc.NewGivenCustom([]byte("key"), keyfunc.GivenKeyOptions{Algorithm: "HS256"}),
	}

	opts := keyfuncOptions(given)
	assert.Equal(t, given, opts.GivenKeys)
	assert.Equal(t, time.Hour, opts.RefreshInterval)
	assert.Equal(t, 5*time.Minute, opts.RefreshRateLimit)
	assert.Equal(t, 10*time.Second, opts.RefreshTimeout)
	assert.True(t, opts.RefreshUnknownKID)
	require.NotNil(t, opts.RefreshErrorHandler)
}

func TestHMACKeyfuncRejectsOtherAlgorithms(t *testing.T) {
	kf := hmacKeyfunc([]byte("key"))

	key, err := kf(&jwt.Token{Method: jwt.SigningMethodHS256})
	require.NoError(t, err)
	assert.Equal(t, []byte("key"), key)

	_, err = kf(&jwt.Token{Method: jwt.SigningMethodRS256, Header: map[string]any{"alg": "RS256"}})
	assert.Error(t, err)

	_, err = kf(&jwt.Token{Method: jwt.SigningMethodNone, Header: map[string]any{"alg": "none"}})
	assert.Error(t, err)
}
