package config

import (
	"strings"
	"testing"

	"github.com/zwiftdocs/zwobuild/fs/mock"
)

func TestParseDefaultConfig(t *testing.T) {
	cfg, err := Parse("<builtin>", DefaultConfig)
	if err != nil {
		t.Fatalf("failed to parse the built-in config: %v", err)
	}

	wantOrder := []string{
		"zwift_workout_file_tag_reference.md",
		"tag_attr_usage.json",
		"clean-md",
		"clean-json",
		"clean-all",
	}
	if len(cfg.Order) != len(wantOrder) {
		t.Fatalf("expected %d targets, got %d", len(wantOrder), len(cfg.Order))
	}
	for i, name := range wantOrder {
		if cfg.Order[i] != name {
			t.Errorf("order[%d]: expected %s, got %s", i, name, cfg.Order[i])
		}
	}

	if cfg.DefaultTarget() != "zwift_workout_file_tag_reference.md" {
		t.Errorf("unexpected default target: %s", cfg.DefaultTarget())
	}

	md := cfg.Targets["zwift_workout_file_tag_reference.md"]
	if md.Cmd != "zwift-zwo-docs-render tag_attr_usage.json descriptions.yaml" {
		t.Errorf("unexpected renderer recipe: %s", md.Cmd)
	}
	if len(md.Dependencies) != 2 || md.Dependencies[0] != "zwift_zwo_docs/*.py" || md.Dependencies[1] != "descriptions.yaml" {
		t.Errorf("unexpected markdown dependencies: %v", md.Dependencies)
	}
	if len(md.TargetDeps) != 1 || md.TargetDeps[0] != "tag_attr_usage.json" {
		t.Errorf("unexpected markdown target deps: %v", md.TargetDeps)
	}
	if md.Phony {
		t.Error("markdown target must not be phony")
	}

	jsonTgt := cfg.Targets["tag_attr_usage.json"]
	if len(jsonTgt.OptionalDependencies) != 1 || jsonTgt.OptionalDependencies[0] != "workouts" {
		t.Errorf("unexpected optional dependencies: %v", jsonTgt.OptionalDependencies)
	}
	if !strings.Contains(jsonTgt.Cmd, "$<") {
		t.Errorf("analyser recipe should use $<: %s", jsonTgt.Cmd)
	}

	for _, name := range []string{"clean-md", "clean-json", "clean-all"} {
		if !cfg.Targets[name].Phony {
			t.Errorf("target %s must be phony", name)
		}
	}
	if !cfg.Targets["clean-md"].IsCleanRule() || !cfg.Targets["clean-json"].IsCleanRule() {
		t.Error("clean-md and clean-json must be clean rules")
	}
	cleanAll := cfg.Targets["clean-all"]
	if cleanAll.IsCleanRule() {
		t.Error("clean-all must delegate to its target deps")
	}
	if len(cleanAll.TargetDeps) != 2 {
		t.Errorf("unexpected clean-all target deps: %v", cleanAll.TargetDeps)
	}
}

func TestLoadFallsBackToBuiltin(t *testing.T) {
	fsys := mock.NewMockFileSystem()

	cfg, err := Load(fsys, DefaultConfigName)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DefaultTarget() != "zwift_workout_file_tag_reference.md" {
		t.Errorf("expected the built-in pipeline, got default target %s", cfg.DefaultTarget())
	}
}

func TestLoadReadsConfigFile(t *testing.T) {
	fsys := mock.NewMockFileSystem()
	fsys.AddFile(DefaultConfigName, []byte(`config = {
    "report.txt": {
        "cmd": "report-tool $<",
        "dependencies": ["data/*.csv"],
    },
}
`))

	cfg, err := Load(fsys, DefaultConfigName)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DefaultTarget() != "report.txt" {
		t.Errorf("unexpected default target: %s", cfg.DefaultTarget())
	}
	if cfg.Targets["report.txt"].Cmd != "report-tool $<" {
		t.Errorf("unexpected recipe: %s", cfg.Targets["report.txt"].Cmd)
	}
}

func TestParseRejectsUndeclaredTargetDep(t *testing.T) {
	_, err := Parse("<test>", `config = {
    "a": {"cmd": "true", "target_deps": ["missing"]},
}
`)
	if err == nil {
		t.Fatal("expected an error for an undeclared target dep")
	}
	if !strings.Contains(err.Error(), "undeclared target") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestParseRejectsPhonyFileDependency(t *testing.T) {
	_, err := Parse("<test>", `config = {
    "report.txt": {
        "cmd": "report-tool $<",
        "dependencies": ["clean-x"],
    },
    "clean-x": {
        "phony": True,
        "removes": ["report.txt"],
    },
}
`)
	if err == nil {
		t.Fatal("expected load-time rejection of a phony target used as a file dependency")
	}
	if !strings.Contains(err.Error(), "phony target clean-x as a file dependency") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestParseRejectsPhonyOptionalDependency(t *testing.T) {
	_, err := Parse("<test>", `config = {
    "report.txt": {
        "cmd": "report-tool $<",
        "optional_dependencies": ["clean-x"],
    },
    "clean-x": {
        "phony": True,
        "removes": ["report.txt"],
    },
}
`)
	if err == nil {
		t.Fatal("expected load-time rejection of a phony target used as an optional dependency")
	}
}

func TestParseRejectsNonStringKey(t *testing.T) {
	_, err := Parse("<test>", `config = {
    1: {"cmd": "true"},
}
`)
	if err == nil {
		t.Fatal("expected an error for a non-string config key")
	}
	if !strings.Contains(err.Error(), "config keys must be strings") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestParseRejectsEmptyConfig(t *testing.T) {
	_, err := Parse("<test>", "config = {}\n")
	if err == nil {
		t.Fatal("expected an error for an empty config")
	}
}

func TestParseRejectsBadSyntax(t *testing.T) {
	_, err := Parse("<test>", "config = {\n")
	if err == nil {
		t.Fatal("expected a Starlark syntax error")
	}
}

func TestParseRejectsWrongFieldType(t *testing.T) {
	_, err := Parse("<test>", `config = {
    "a": {"cmd": 42},
}
`)
	if err == nil {
		t.Fatal("expected a type error for a non-string cmd")
	}
	if !strings.Contains(err.Error(), "expected string") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestParseRequiresConfigGlobal(t *testing.T) {
	_, err := Parse("<test>", "targets = {}\n")
	if err == nil {
		t.Fatal("expected an error when the config global is missing")
	}
	if !strings.Contains(err.Error(), "'config' object not found") {
		t.Errorf("unexpected error: %v", err)
	}
}
