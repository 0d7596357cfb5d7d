package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	data := map[string]string{"result": "success"}
	err := formatter.Success(data, nil)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Error("E001", "order log unavailable", nil)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "error", resp.Status)
	assert.NotNil(t, resp.Error)
	assert.Equal(t, "E001", resp.Error.Code)
	assert.Equal(t, "order log unavailable", resp.Error.Message)
}

func TestOutputFormatter_JSONErrorWithDetails(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	details := map[string]string{"file": "log.db", "line": "42"}
	err := formatter.Error("E002", "session unreadable", details)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "error", resp.Status)
	assert.NotNil(t, resp.Error)
	assert.NotNil(t, resp.Error.Details)
}

func TestOutputFormatter_TextSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "text",
		Writer: buf,
	}

	err := formatter.Success("Order 1 collected", nil)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Order 1 collected")
}

func TestOutputFormatter_TextRenderer(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "text",
		Writer: buf,
	}

	err := formatter.Success(42, func(w io.Writer) { fmt.Fprint(w, "rendered") })
	require.NoError(t, err)
	assert.Equal(t, "rendered", buf.String())
}

func TestOutputFormatter_Fail(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Fail(ExitCommandError, ErrCodeConfig, "failed to load config", errors.New("bad yaml"))
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "bad yaml")

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, ErrCodeConfig, resp.Error.Code)
	assert.Equal(t, "bad yaml", resp.Error.Details)
}

func TestOutputFormatter_LiveOnlyForTerminals(t *testing.T) {
	assert.False(t, (&OutputFormatter{Format: "text", Writer: &bytes.Buffer{}}).Live())
	assert.False(t, (&OutputFormatter{Format: "json", Writer: os.Stdout}).Live())
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "boom")))
	wrapped := fmt.Errorf("outer: %w", WrapExitError(ExitFailure, "inner", nil))
	assert.Equal(t, ExitFailure, GetExitCode(wrapped))
}

func TestOutputFormatter_TextError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "text",
		Writer:  buf,
		Verbose: false,
	}

	err := formatter.Error("E001", "order log unavailable", nil)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Error [E001]")
	assert.Contains(t, buf.String(), "order log unavailable")
}

func TestOutputFormatter_TextErrorVerbose(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "text",
		Writer:  buf,
		Verbose: true,
	}

	details := map[string]string{"file": "log.db"}
	err := formatter.Error("E001", "order log unavailable", details)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Error [E001]")
	assert.Contains(t, buf.String(), "Details:")
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		wantLog bool
	}{
		{"verbose_enabled", true, true},
		{"verbose_disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{
				Format:  "text",
				Writer:  buf,
				Verbose: tt.verbose,
			}

			formatter.VerboseLog("Processing %s", "order 7")

			if tt.wantLog {
				assert.Contains(t, buf.String(), "Processing order 7")
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}

func TestCLIResponse_JSON(t *testing.T) {
	resp := CLIResponse{
		Status: "ok",
		Data:   map[string]int{"count": 42},
	}

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded CLIResponse
	err = json.Unmarshal(data, &decoded)
	require.NoError(t, err)
	assert.Equal(t, "ok", decoded.Status)
}

func TestCLIError_JSON(t *testing.T) {
	cliErr := CLIError{
		Code:    "E002",
		Message: "invalid quantity",
		Details: []string{"quantity: 11 is outside 1-10"},
	}

	data, err := json.Marshal(cliErr)
	require.NoError(t, err)

	var decoded CLIError
	err = json.Unmarshal(data, &decoded)
	require.NoError(t, err)
	assert.Equal(t, "E002", decoded.Code)
	assert.Equal(t, "invalid quantity", decoded.Message)
}
