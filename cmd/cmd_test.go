package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/kayz/ctf-assets/internal/config"
	"github.com/kayz/ctf-assets/internal/generator"
)

// fakeOpenAI serves model listing and chat completions. Every chat answer is
// content.
func fakeOpenAI(t *testing.T, content string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/models":
			fmt.Fprint(w, `{"object":"list","data":[{"id":"gpt-4o-mini"},{"id":"gpt-4o"},{"id":"o3-mini"},{"id":"dall-e-3"}]}`)
		case "/v1/chat/completions":
			body, _ := json.Marshal(content)
			fmt.Fprintf(w, `{"id":"c1","object":"chat.completion","created":1,"model":"gpt-4o-mini","choices":[{"index":0,"message":{"role":"assistant","content":%s},"finish_reason":"stop"}]}`, body)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

// writeTestConfig points the commands at baseURL and keeps all files in a
// temp dir.
func writeTestConfig(t *testing.T, baseURL string) string {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.AI.BaseURL = baseURL
	cfg.AI.APIKeyEnv = "CTF_ASSETS_TEST_KEY"
	cfg.History.Path = filepath.Join(dir, "history.db")
	cfg.Audit.Dir = filepath.Join(dir, "audit")
	cfg.Generation.OutputDir = filepath.Join(dir, "output")

	path := filepath.Join(dir, "config.yaml")
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("save config: %v", err)
	}
	t.Setenv(envConfigPath, path)
	t.Setenv("CTF_ASSETS_TEST_KEY", "sk-test")
	return dir
}

func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestGenerateRejectsFunctionOutsideAllowList(t *testing.T) {
	for _, fn := range []string{"os.system", "__import__", "generate_flags; rm -rf /", "GenerateFlags"} {
		_, err := execute(t, newGenerateCommand(), "flags", fn)
		if err == nil || !strings.Contains(err.Error(), "is not allowed") {
			t.Fatalf("function %q: expected allow-list rejection, got %v", fn, err)
		}
	}
}

func TestGenerateRejectsFunctionOfAnotherKind(t *testing.T) {
	_, err := execute(t, newGenerateCommand(), "flags", "generate_images")
	if err == nil || !strings.Contains(err.Error(), "does not generate flag assets") {
		t.Fatalf("expected kind mismatch error, got %v", err)
	}
}

func TestGenerateRejectsUnknownKind(t *testing.T) {
	_, err := execute(t, newGenerateCommand(), "poems")
	if err == nil || !strings.Contains(err.Error(), "unknown asset kind") {
		t.Fatalf("expected unknown kind error, got %v", err)
	}
}

func TestGenerateFlagsEndToEnd(t *testing.T) {
	srv := fakeOpenAI(t, `{"flags":["ctf{one}","ctf{two}"]}`)
	dir := writeTestConfig(t, srv.URL+"/v1")
	saveDir := filepath.Join(dir, "saved")

	out, err := execute(t, newGenerateCommand(), "flags",
		"--theme", "pirates", "-n", "2", "--model", "gpt-nope",
		"--save", "--metadata", "--out-dir", saveDir, "--prefix", "team one")
	if err != nil {
		t.Fatalf("generate: %v\noutput=%s", err, out)
	}

	var env struct {
		Function string   `json:"function"`
		Count    int      `json:"count"`
		Items    []string `json:"items"`
		SavedTo  string   `json:"saved_to"`
		Model    struct {
			Requested   string `json:"requested"`
			Effective   string `json:"effective"`
			Substituted bool   `json:"substituted"`
		} `json:"model"`
		Metadata map[string]any `json:"metadata"`
	}
	if err := json.Unmarshal([]byte(out), &env); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if env.Function != "generate_flags" || env.Count != 2 || env.Items[1] != "ctf{two}" {
		t.Fatalf("unexpected envelope: %+v", env)
	}
	if !env.Model.Substituted || env.Model.Effective != "gpt-4o-mini" || env.Model.Requested != "gpt-nope" {
		t.Fatalf("substitution not reported: %+v", env.Model)
	}
	if env.Metadata == nil {
		t.Fatalf("expected metadata in output")
	}
	if !strings.HasPrefix(filepath.Base(env.SavedTo), "team_one_flag_") {
		t.Fatalf("unexpected saved file: %s", env.SavedTo)
	}
	if _, err := os.Stat(env.SavedTo); err != nil {
		t.Fatalf("saved file missing: %v", err)
	}

	hist, err := execute(t, newHistoryCommand(), "--format", "json", "--items")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	var runs []struct {
		ID          string   `json:"id"`
		Function    string   `json:"function"`
		Model       string   `json:"model"`
		Substituted bool     `json:"substituted"`
		Items       []string `json:"items"`
	}
	if err := json.Unmarshal([]byte(hist), &runs); err != nil {
		t.Fatalf("decode history: %v\n%s", err, hist)
	}
	if len(runs) != 1 || runs[0].Function != "generate_flags" || !runs[0].Substituted || len(runs[0].Items) != 2 {
		t.Fatalf("unexpected history: %+v", runs)
	}

	detail, err := execute(t, newHistoryCommand(), "--id", runs[0].ID[:8])
	if err != nil {
		t.Fatalf("history --id: %v", err)
	}
	for _, want := range []string{"id:        " + runs[0].ID, "requested: gpt-nope", "items:     2/2", `"ctf{two}"`} {
		if !strings.Contains(detail, want) {
			t.Fatalf("expected %q in run detail:\n%s", want, detail)
		}
	}
	if _, err := execute(t, newHistoryCommand(), "--id", "nope"); err == nil || !strings.Contains(err.Error(), `no run with id "nope"`) {
		t.Fatalf("expected missing run error, got %v", err)
	}
}

func TestGenerateTitledStoriesNoHistory(t *testing.T) {
	srv := fakeOpenAI(t, `{"stories_with_titles":[{"title":"A","story":"B"},{"title":"C"}]}`)
	dir := writeTestConfig(t, srv.URL+"/v1")

	out, err := execute(t, newGenerateCommand(), "stories", "generate_stories_with_titles", "--no-history", "--format", "yaml")
	if err != nil {
		t.Fatalf("generate: %v\noutput=%s", err, out)
	}
	if !strings.Contains(out, "title: A") || strings.Contains(out, "title: C") {
		t.Fatalf("unexpected yaml output:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(dir, "history.db")); !os.IsNotExist(err) {
		t.Fatalf("history should not be written with --no-history")
	}
}

func TestGenerateStrictMissingKey(t *testing.T) {
	srv := fakeOpenAI(t, `{}`)
	writeTestConfig(t, srv.URL+"/v1")
	t.Setenv("CTF_ASSETS_TEST_KEY", "")

	_, err := execute(t, newGenerateCommand(), "flags")
	if !errors.Is(err, config.ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}

	_, err = execute(t, newGenerateCommand(), "flags", "--strict=false")
	if !errors.Is(err, generator.ErrNoClient) {
		t.Fatalf("expected ErrNoClient in lenient mode, got %v", err)
	}
}

func TestModelsCommand(t *testing.T) {
	srv := fakeOpenAI(t, `{}`)
	writeTestConfig(t, srv.URL+"/v1")

	out, err := execute(t, newModelsCommand())
	if err != nil {
		t.Fatalf("models: %v", err)
	}
	for _, want := range []string{"- gpt-4o-mini [default]", "- o3-mini [reasoning]", "- dall-e-3 [default,image]"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}

	out, err = execute(t, newModelsCommand(), "--resolve", "gpt-5-imaginary")
	if err != nil {
		t.Fatalf("models --resolve: %v", err)
	}
	if !strings.Contains(out, "effective:   gpt-4o-mini") || !strings.Contains(out, "substituted: true") {
		t.Fatalf("unexpected resolve output:\n%s", out)
	}
}

func TestConfigInitRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	t.Setenv(envConfigPath, path)

	if _, err := execute(t, newConfigCommand(), "init"); err != nil {
		t.Fatalf("config init: %v", err)
	}
	if _, err := execute(t, newConfigCommand(), "init"); err == nil {
		t.Fatalf("expected refusal to overwrite")
	}
	out, err := execute(t, newConfigCommand(), "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if !strings.Contains(out, "default_model: gpt-4o-mini") {
		t.Fatalf("unexpected config output:\n%s", out)
	}
}

func TestPromptCommandNeedsNoAPI(t *testing.T) {
	t.Setenv(envConfigPath, filepath.Join(t.TempDir(), "missing.yaml"))

	out, err := execute(t, newPromptCommand(), "stories", "generate_stories_with_titles",
		"--theme", "lighthouses", "-n", "0", "--instructions", "Keep it short.", "--schema")
	if err != nil {
		t.Fatalf("prompt: %v", err)
	}
	var view struct {
		Function string `json:"function"`
		User     string `json:"user"`
		System   string `json:"system"`
		Schema   *struct {
			Name   string         `json:"name"`
			Key    string         `json:"key"`
			Schema map[string]any `json:"schema"`
		} `json:"schema"`
	}
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("decode prompt output: %v\n%s", err, out)
	}
	if !strings.Contains(view.User, "exactly 1 unique stories in es-PR") || !strings.HasSuffix(view.User, "Keep it short.") {
		t.Fatalf("unexpected user prompt: %q", view.User)
	}
	if view.Schema == nil || view.Schema.Name != "TitledStoryResponse" || view.Schema.Key != "stories_with_titles" {
		t.Fatalf("expected titled schema, got %#v", view.Schema)
	}
	if view.Schema.Schema["type"] != "object" {
		t.Fatalf("expected the schema body under \"schema\", got %#v", view.Schema.Schema)
	}
}
