package wmic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/go-kit/kit/log"
)

func testBinder(run runner) *wmicBinder {
	return &wmicBinder{run: run, logger: log.NewNopLogger()}
}

func TestSetCertificate(t *testing.T) {
	fingerprint := "AA11BB22CC33DD44EE55FF66AA77BB88CC99DD00"

	testCases := []struct {
		name    string
		output  string
		err     error
		wantErr bool
	}{
		{
			name:   "Successful binding",
			output: "Updating property(s) of '\\\\HOST\\root\\cimv2\\TerminalServices:Win32_TSGeneralSetting.TerminalName=\"RDP-Tcp\"'\nProperty(s) update successful.",
		},
		{
			name:    "Unrecognized output",
			output:  "Updating property(s) of '\\\\HOST\\root\\cimv2\\TerminalServices:Win32_TSGeneralSetting.TerminalName=\"RDP-Tcp\"'\nERROR:\nDescription = Invalid parameter",
			wantErr: true,
		},
		{
			name:    "Nonzero exit",
			output:  "",
			err:     errors.New("exit status 1"),
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(fmt.Sprintf("Testing %s", tc.name), func(t *testing.T) {
			var gotArgs []string
			srv := testBinder(func(ctx context.Context, name string, args ...string) (string, error) {
				gotArgs = args
				return tc.output, tc.err
			})

			err := srv.SetCertificate(context.Background(), fingerprint)
			if (err != nil) != tc.wantErr {
				t.Errorf("Got error %v; want error: %t", err, tc.wantErr)
			}
			found := false
			for _, arg := range gotArgs {
				if strings.Contains(arg, "SSLCertificateSHA1Hash=\""+fingerprint+"\"") {
					found = true
				}
			}
			if !found {
				t.Errorf("Got command arguments %v; want the fingerprint assigned to SSLCertificateSHA1Hash", gotArgs)
			}
		})
	}
}
