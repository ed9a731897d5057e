package service

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOutcomeHTTPStatus(t *testing.T) {
	tests := []struct {
		outcome Outcome
		status  int
	}{
		{OutcomeValid, http.StatusOK},
		{OutcomeBadRequest, http.StatusBadRequest},
		{OutcomeRateLimit, http.StatusTooManyRequests},
		{OutcomeTeamNotFound, http.StatusNotFound},
		{OutcomeLicenseNotFound, http.StatusNotFound},
		{OutcomeCustomerNotFound, http.StatusNotFound},
		{OutcomeProductNotFound, http.StatusNotFound},
		{OutcomeReleaseNotFound, http.StatusNotFound},
		{OutcomeIPBlacklisted, http.StatusForbidden},
		{OutcomeCountryBlacklisted, http.StatusForbidden},
		{OutcomeDeviceIdentifierBlacklisted, http.StatusForbidden},
		{OutcomeLicenseSuspended, http.StatusForbidden},
		{OutcomeLicenseExpired, http.StatusForbidden},
		{OutcomeIPLimitReached, http.StatusForbidden},
		{OutcomeMaximumConcurrentSeats, http.StatusForbidden},
		{OutcomeInternalError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		require.Equal(t, tt.status, tt.outcome.HTTPStatus(), string(tt.outcome))
	}

	// 未识别的结果码按失败关闭处理
	require.Equal(t, http.StatusInternalServerError, Outcome("SOMETHING_NEW").HTTPStatus())
	require.False(t, Outcome("SOMETHING_NEW").Valid())
}

func TestOutcomeDetails(t *testing.T) {
	require.Equal(t, "License is valid", OutcomeValid.Details())
	require.Equal(t, "Maximum concurrent seats reached", OutcomeMaximumConcurrentSeats.Details())
	require.NotEmpty(t, Outcome("SOMETHING_NEW").Details())
}
