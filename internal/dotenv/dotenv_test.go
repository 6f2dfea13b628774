package dotenv

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFile_MissingFileIsNoop(t *testing.T) {
	if err := LoadFile(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
}

func TestLoadFile_SetsAndPreserves(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "# comment\nexport FOO=bar\nQUOTED=\"a b\"\nEXISTING=from_file\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("EXISTING", "from_env")
	t.Setenv("FOO", "")
	os.Unsetenv("FOO")
	os.Unsetenv("QUOTED")

	if err := LoadFile(path); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if got := os.Getenv("FOO"); got != "bar" {
		t.Errorf("FOO=%q, want %q", got, "bar")
	}
	if got := os.Getenv("QUOTED"); got != "a b" {
		t.Errorf("QUOTED=%q, want %q", got, "a b")
	}
	if got := os.Getenv("EXISTING"); got != "from_env" {
		t.Errorf("EXISTING=%q, want existing value preserved", got)
	}
}

func TestLookup_DoesNotMutateEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("OPENAI_API_KEY=sk-test\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	val, ok, err := Lookup(path, "OPENAI_API_KEY")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !ok || val != "sk-test" {
		t.Fatalf("Lookup = %q, %v", val, ok)
	}
	if _, exists := os.LookupEnv("OPENAI_API_KEY"); exists {
		t.Error("Lookup must not set process environment")
	}

	_, ok, err = Lookup(path, "MISSING")
	if err != nil || ok {
		t.Fatalf("missing key: ok=%v err=%v", ok, err)
	}
}
