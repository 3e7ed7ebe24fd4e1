package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/DevTigeer/ClosetConnectProject/internal/models"
)

func TestMapCategoryKnownLabels(t *testing.T) {
	p := DefaultPolicy()
	cases := []struct {
		label string
		want  models.Category
	}{
		{"upper-clothes", models.CategoryTop},
		{"dress", models.CategoryTop},
		{"pants", models.CategoryBottom},
		{"skirt", models.CategoryBottom},
		{"shoes", models.CategoryShoes},
		{"left-shoe", models.CategoryShoes},
		{"right-shoe", models.CategoryShoes},
		{"hat", models.CategoryAcc},
		{"bag", models.CategoryAcc},
		{"scarf", models.CategoryAcc},
	}
	for _, c := range cases {
		if got := p.MapCategory(c.label); got != c.want {
			t.Errorf("MapCategory(%q) = %s, want %s", c.label, got, c.want)
		}
	}
}

func TestMapCategoryUnknownLabel(t *testing.T) {
	p := DefaultPolicy()
	if got := p.MapCategory("sunglasses"); got != models.CategoryAcc {
		t.Errorf("unknown label mapped to %s, want %s", got, models.CategoryAcc)
	}
	if got := p.MapCategory(""); got != models.CategoryAcc {
		t.Errorf("empty label mapped to %s, want %s", got, models.CategoryAcc)
	}
}

func TestLoadPolicyEmptyPath(t *testing.T) {
	p, err := LoadPolicy("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.PriorityOrder) == 0 || p.PriorityOrder[0] != "dress" {
		t.Errorf("defaults not returned: %v", p.PriorityOrder)
	}
}

func TestLoadPolicyOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.json")
	content := `{"priorityOrder":["hat","dress"],"categoryMapping":{"hat":"TOP"}}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := LoadPolicy(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.PriorityOrder) != 2 || p.PriorityOrder[0] != "hat" {
		t.Errorf("priority override not applied: %v", p.PriorityOrder)
	}
	if p.MapCategory("hat") != models.CategoryTop {
		t.Errorf("mapping override not applied: %s", p.MapCategory("hat"))
	}
	// A replaced mapping table no longer knows the old labels.
	if p.MapCategory("pants") != models.CategoryAcc {
		t.Errorf("replaced table should default pants to ACC, got %s", p.MapCategory("pants"))
	}
}

func TestLoadPolicyPartialOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.json")
	if err := os.WriteFile(path, []byte(`{"priorityOrder":["scarf"]}`), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := LoadPolicy(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.PriorityOrder) != 1 || p.PriorityOrder[0] != "scarf" {
		t.Errorf("priority override not applied: %v", p.PriorityOrder)
	}
	if p.MapCategory("pants") != models.CategoryBottom {
		t.Errorf("default mapping lost on partial override")
	}
}

func TestLoadPolicyMissingFile(t *testing.T) {
	if _, err := LoadPolicy(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Error("expected error for missing policy file")
	}
}
