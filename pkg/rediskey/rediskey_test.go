package rediskey

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildContractSequenceKey(t *testing.T) {
	require.Equal(t, "seq:contract:t1:ACM-25", BuildContractSequenceKey("t1", "ACM", "25"))
}
