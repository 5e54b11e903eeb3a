package cmd

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"payroll-reconciliation-service/pkg/errors"
	"payroll-reconciliation-service/pkg/logger"
)

func newTestHandler(verbose bool) (*CLIErrorHandler, *bytes.Buffer) {
	var out bytes.Buffer
	return &CLIErrorHandler{
		logger:  logger.WithComponent("cli"),
		verbose: verbose,
		out:     &out,
	}, &out
}

func TestHandleError_ExitCodes(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		expectedCode int
		contains     []string
	}{
		{
			name:         "nil error",
			err:          nil,
			expectedCode: 0,
		},
		{
			name:         "nothing selected",
			err:          errors.InputError(errors.CodeNoInput, "documents folder", ""),
			expectedCode: 0,
			contains:     []string{"Nothing to reconcile", "no documents folder selected"},
		},
		{
			name:         "missing ledger",
			err:          errors.FileError(errors.CodeLedgerMissing, "/data/ledger.xlsx", nil),
			expectedCode: 2,
			contains:     []string{"ledger file not found", "file_path: /data/ledger.xlsx", "File error help"},
		},
		{
			name:         "missing column",
			err:          errors.ExtractionError(errors.CodeMissingColumn, "ledger.xlsx", 1, "Összeg", nil),
			expectedCode: 3,
			contains:     []string{"missing required column 'Összeg'", "Ledger layout help"},
		},
		{
			name:         "bad configuration",
			err:          errors.ConfigurationError(errors.CodeInvalidConfig, "output-format", "xml", nil),
			expectedCode: 4,
			contains:     []string{"invalid configuration for 'output-format'", "Configuration error help"},
		},
		{
			name:         "interrupted run",
			err:          errors.ReconciliationError(errors.CodeProcessingError, "document extraction", fmt.Errorf("context canceled")),
			expectedCode: 5,
			contains:     []string{"processing error during document extraction", "original ledger was not modified"},
		},
		{
			name:         "usage error",
			err:          fmt.Errorf("unknown flag: --bank-files"),
			expectedCode: 1,
			contains:     []string{"unknown flag", "reconciler --help"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, out := newTestHandler(false)

			code := handler.HandleError(tt.err)
			if code != tt.expectedCode {
				t.Errorf("expected exit code %d, got %d", tt.expectedCode, code)
			}

			for _, want := range tt.contains {
				if !strings.Contains(out.String(), want) {
					t.Errorf("expected output to contain '%s', got:\n%s", want, out.String())
				}
			}
		})
	}
}

func TestHandleError_VerboseShowsCause(t *testing.T) {
	cause := fmt.Errorf("zip: not a valid zip file")
	err := errors.FileError(errors.CodeFileCorrupted, "ledger.xlsx", cause)

	handler, out := newTestHandler(true)
	handler.HandleError(err)
	if !strings.Contains(out.String(), "Underlying error: zip: not a valid zip file") {
		t.Errorf("expected the underlying error in verbose mode, got:\n%s", out.String())
	}

	quiet, quietOut := newTestHandler(false)
	quiet.HandleError(err)
	if strings.Contains(quietOut.String(), "Underlying error") {
		t.Errorf("expected no underlying error without verbose, got:\n%s", quietOut.String())
	}
}

func TestHandleError_PathError(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "ledger_2024.xlsx"), []byte("x"), 0644); err != nil {
		t.Fatalf("failed to create file: %v", err)
	}

	_, statErr := os.Stat(filepath.Join(dir, "ledger.xlsx"))
	if _, ok := statErr.(*fs.PathError); !ok {
		t.Fatalf("expected a path error, got %T", statErr)
	}

	handler, out := newTestHandler(false)
	if code := handler.HandleError(fmt.Errorf("opening ledger: %w", statErr)); code != 2 {
		t.Errorf("expected exit code 2, got %d", code)
	}

	for _, want := range []string{"Error with file 'ledger.xlsx'", "Similar files found", "ledger_2024.xlsx"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("expected output to contain '%s', got:\n%s", want, out.String())
		}
	}
}

func TestFormatFileError_Permission(t *testing.T) {
	message := FormatFileError("/data/ledger.xlsx", fs.ErrPermission)
	if !strings.Contains(message, "Check file permissions") {
		t.Errorf("expected a permission suggestion, got:\n%s", message)
	}
}
