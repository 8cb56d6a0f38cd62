package synology

import (
	"context"
	"encoding/json"
	"net/url"
)

// ListTargets returns every iSCSI target. With includeConnections the
// connected initiator sessions of each target are filled in.
func (s *Session) ListTargets(ctx context.Context, includeConnections bool) ([]Target, error) {
	if s.LoggedIn() {
		s.client.traceMethod("ListTargets")
	}

	params := url.Values{}
	if includeConnections {
		params.Set("additional", jsonParam([]string{"connected_sessions"}))
	}

	var list targetList
	if err := s.request(ctx, apiISCSITarget, apiISCSIVer, "list", params, &list); err != nil {
		return nil, err
	}
	return list.Targets, nil
}

// ListLUNs returns every iSCSI LUN.
func (s *Session) ListLUNs(ctx context.Context) ([]LUN, error) {
	if s.LoggedIn() {
		s.client.traceMethod("ListLUNs")
	}

	var list lunList
	if err := s.request(ctx, apiISCSILUN, apiISCSIVer, "list", nil, &list); err != nil {
		return nil, err
	}
	return list.LUNs, nil
}

// jsonParam encodes v the way DSM expects structured query values: as JSON.
// Plain strings therefore end up quoted.
func jsonParam(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		// Only called with strings and string slices.
		panic(err)
	}
	return string(b)
}
