package accesscontrol

import (
	"testing"

	"contract-lifecycle/pkg/config"

	"github.com/stretchr/testify/require"
)

func TestDefaultPolicies(t *testing.T) {
	az, err := New(&config.Config{})
	require.NoError(t, err)

	cases := []struct {
		roles  []string
		action string
		want   bool
	}{
		{[]string{"Admin"}, ActionApprove, true},
		{[]string{"manager"}, ActionApprove, true},
		{[]string{"member"}, ActionWrite, true},
		{[]string{"member"}, ActionApprove, false},
		{[]string{"viewer"}, ActionRead, true},
		{[]string{"viewer"}, ActionDelete, false},
		{[]string{"viewer", "member"}, ActionWrite, true},
		{nil, ActionRead, false},
		{[]string{"unknown"}, ActionRead, false},
	}
	for _, tc := range cases {
		got, err := az.Allowed(tc.roles, ObjectContract, tc.action)
		require.NoError(t, err)
		require.Equal(t, tc.want, got, "%v %s", tc.roles, tc.action)
	}
}

func TestNewWithMissingFiles(t *testing.T) {
	cfg := &config.Config{}
	cfg.AccessControl.Model = "does-not-exist.conf"
	cfg.AccessControl.Policy = "does-not-exist.csv"
	_, err := New(cfg)
	require.Error(t, err)
}
