package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/99designs/keyring"
	"github.com/PolarWolf314/credkeep/internal/configs"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// cli runs the root command against one data directory and a pair of
// in-memory keyrings that persist across invocations.
type cli struct {
	t       *testing.T
	dataDir string
	cipher  keyring.Keyring
	vault   keyring.Keyring
}

func newCLI(t *testing.T, vaultItems ...keyring.Item) *cli {
	t.Helper()
	t.Setenv("NO_COLOR", "1")
	for _, key := range []string{
		configs.EnvDataDir,
		configs.EnvIdentity,
		configs.EnvKeyringBackends,
		configs.EnvKeyringFileDir,
	} {
		t.Setenv(key, "")
	}
	t.Cleanup(func() {
		ResetGlobalState()
		resetFlags(RootCmd)
	})
	return &cli{
		t:       t,
		dataDir: t.TempDir(),
		cipher:  keyring.NewArrayKeyring(nil),
		vault:   keyring.NewArrayKeyring(vaultItems),
	}
}

func (c *cli) run(stdin string, args ...string) (string, error) {
	c.t.Helper()
	ResetGlobalState()
	resetFlags(RootCmd)
	SetKeyrings(c.cipher, c.vault)

	var out bytes.Buffer
	RootCmd.SetOut(&out)
	RootCmd.SetErr(&out)
	RootCmd.SetIn(strings.NewReader(stdin))
	RootCmd.SetArgs(append([]string{"--data-dir", c.dataDir}, args...))

	err := RootCmd.Execute()
	return out.String(), err
}

func (c *cli) mustRun(stdin string, args ...string) string {
	c.t.Helper()
	out, err := c.run(stdin, args...)
	if err != nil {
		c.t.Fatalf("credkeep %s failed: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

func (c *cli) list(show bool) listOutput {
	c.t.Helper()
	args := []string{"list", "--json"}
	if show {
		args = append(args, "--show")
	}
	var output listOutput
	if err := json.Unmarshal([]byte(c.mustRun("", args...)), &output); err != nil {
		c.t.Fatalf("Failed to parse list output: %v", err)
	}
	return output
}

// resetFlags clears parsed flag values, which cobra keeps between Execute calls.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func TestAddListRemove(t *testing.T) {
	c := newCLI(t)

	out := c.mustRun("tok-123\n", "add", "GitHub", "--password-stdin")
	if !strings.Contains(out, "✓ Added 'GitHub'") {
		t.Errorf("Unexpected add output: %q", out)
	}

	t.Run("MaskedByDefault", func(t *testing.T) {
		output := c.list(false)
		if len(output.Records) != 1 {
			t.Fatalf("Expected 1 record, got %+v", output.Records)
		}
		if output.Records[0].Password != "•••••••" {
			t.Errorf("Expected masked secret, got %q", output.Records[0].Password)
		}
	})

	t.Run("RevealedWithShow", func(t *testing.T) {
		output := c.list(true)
		if output.Records[0].Password != "tok-123" || output.Records[0].Name != "GitHub" {
			t.Errorf("Unexpected record: %+v", output.Records[0])
		}
	})

	t.Run("TextOutput", func(t *testing.T) {
		out := c.mustRun("", "list")
		if !strings.Contains(out, "'GitHub'") || strings.Contains(out, "tok-123") {
			t.Errorf("Unexpected list output: %q", out)
		}
	})

	t.Run("Remove", func(t *testing.T) {
		id := c.list(false).Records[0].ID
		out := c.mustRun("", "remove", id)
		if !strings.Contains(out, "✓ Removed") {
			t.Errorf("Unexpected remove output: %q", out)
		}

		out = c.mustRun("", "list")
		if !strings.Contains(out, "No credentials stored yet") {
			t.Errorf("Expected empty list, got %q", out)
		}
	})

	t.Run("RemoveMissing", func(t *testing.T) {
		if _, err := c.run("", "remove", "does-not-exist"); err != nil {
			t.Errorf("Removing a missing id should succeed, got %v", err)
		}
	})
}

func TestAddRejectsEmptyStdin(t *testing.T) {
	c := newCLI(t)

	if _, err := c.run("\n", "add", "Empty", "--password-stdin"); err == nil {
		t.Fatal("Expected add with empty stdin to fail")
	}
	if n := len(c.list(false).Records); n != 0 {
		t.Errorf("Expected no records, got %d", n)
	}
}

func TestSet(t *testing.T) {
	c := newCLI(t)
	c.mustRun("first\n", "add", "GitHub", "--password-stdin")
	id := c.list(false).Records[0].ID

	t.Run("Rename", func(t *testing.T) {
		out := c.mustRun("", "set", id, "--name", "GitHub (work)")
		if !strings.Contains(out, "✓ Updated 'GitHub (work)'") {
			t.Errorf("Unexpected set output: %q", out)
		}
		rec := c.list(true).Records[0]
		if rec.Name != "GitHub (work)" || rec.Password != "first" {
			t.Errorf("Unexpected record after rename: %+v", rec)
		}
	})

	t.Run("NewSecret", func(t *testing.T) {
		c.mustRun("second\n", "set", id, "--password-stdin")
		rec := c.list(true).Records[0]
		if rec.Name != "GitHub (work)" || rec.Password != "second" {
			t.Errorf("Unexpected record after secret change: %+v", rec)
		}
	})

	t.Run("NothingToChange", func(t *testing.T) {
		if _, err := c.run("", "set", id); err == nil {
			t.Error("Expected set without changes to fail")
		}
	})

	t.Run("MissingRecord", func(t *testing.T) {
		out, err := c.run("", "set", "missing", "--name", "x")
		if err == nil {
			t.Fatal("Expected set on a missing record to fail")
		}
		if !strings.Contains(out, "no credential with id missing") {
			t.Errorf("Unexpected error output: %q", out)
		}
	})
}

func writeHeaderRecord(t *testing.T, dataDir, id, name string) {
	t.Helper()
	dir := filepath.Join(dataDir, configs.StoreDirName)
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	content := `{"id":"` + id + `","name":"` + name + `","password":""}`
	if err := os.WriteFile(filepath.Join(dir, id+".json"), []byte(content), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
}

func TestStatusAndMigrate(t *testing.T) {
	c := newCLI(t, keyring.Item{Key: "legacy", Data: []byte(`{"password":"from-vault"}`)})
	writeHeaderRecord(t, c.dataDir, "legacy", "Old entry")

	status := func() statusOutput {
		t.Helper()
		var output statusOutput
		if err := json.Unmarshal([]byte(c.mustRun("", "status", "--json")), &output); err != nil {
			t.Fatalf("Failed to parse status output: %v", err)
		}
		return output
	}

	before := status()
	if before.PendingVault != 1 || before.HeaderOnly != 1 || before.Unmigrated != 1 {
		t.Fatalf("Unexpected status before migration: %+v", before)
	}

	out := c.mustRun("", "migrate", "--verbose")
	if !strings.Contains(out, "✓ Migration complete") || !strings.Contains(out, "1 merged") {
		t.Errorf("Unexpected migrate output: %q", out)
	}

	after := status()
	if after.PendingVault != 0 || after.HeaderOnly != 0 || after.Unmigrated != 0 {
		t.Errorf("Unexpected status after migration: %+v", after)
	}

	rec := c.list(true).Records[0]
	if rec.ID != "legacy" || rec.Password != "from-vault" {
		t.Errorf("Unexpected migrated record: %+v", rec)
	}
}

func TestConfigCommands(t *testing.T) {
	c := newCLI(t)

	out := c.mustRun("", "config", "init")
	if !strings.Contains(out, "✓ Wrote") {
		t.Errorf("Unexpected config init output: %q", out)
	}
	if _, err := os.Stat(configs.ConfigPath(c.dataDir)); err != nil {
		t.Fatalf("Config file not written: %v", err)
	}

	out = c.mustRun("", "config", "init")
	if !strings.Contains(out, "already exists") {
		t.Errorf("Expected existing config warning, got %q", out)
	}

	out = c.mustRun("", "config", "init", "--force")
	if !strings.Contains(out, "✓ Wrote") {
		t.Errorf("Expected forced overwrite, got %q", out)
	}

	var cfg configs.Config
	if err := json.Unmarshal([]byte(c.mustRun("", "config", "show", "--json")), &cfg); err != nil {
		t.Fatalf("Failed to parse config show output: %v", err)
	}
	if cfg.Identity.Name != configs.DefaultIdentity || cfg.Identity.Legacy != configs.DefaultLegacyIdentity {
		t.Errorf("Unexpected identity config: %+v", cfg.Identity)
	}

	out = c.mustRun("", "config", "show")
	if !strings.Contains(out, "[identity]") {
		t.Errorf("Expected TOML output, got %q", out)
	}
}
