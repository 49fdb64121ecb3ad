package trace

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextRoundTrip(t *testing.T) {
	ctx := WithContext(context.Background(), "abc123")
	assert.Equal(t, "abc123", FromContext(ctx))
	assert.Empty(t, FromContext(context.Background()))
}

func TestFromHeader(t *testing.T) {
	assert.Equal(t, "given", FromHeader(" given "))

	generated := FromHeader("")
	assert.Len(t, generated, 32)
	assert.NotEqual(t, generated, FromHeader(""))
}
