package policyprovider

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CameronXie/xacml-engine/xacml/decision"
	"github.com/CameronXie/xacml-engine/xacml/evalctx"
	"github.com/CameronXie/xacml-engine/xacml/policy"
)

func newEmptyContext() *evalctx.Context { return evalctx.New() }

const denyOverridesRule = "urn:oasis:names:tc:xacml:3.0:rule-combining-algorithm:deny-overrides"

func simplePolicy(t *testing.T, id, version string) *policy.Policy {
	t.Helper()
	rule, err := policy.NewRule("r1", policy.EffectPermit)
	require.NoError(t, err)

	p, err := policy.NewPolicy(id, version, denyOverridesRule, []*policy.Rule{rule})
	require.NoError(t, err)
	return p
}

// versionedDocument renders a minimal permit-all policy document.
func versionedDocument(id, version string) string {
	return fmt.Sprintf(`{
	  "policy": {
	    "id": %q,
	    "version": %q,
	    "ruleCombiningAlgId": %q,
	    "rules": [{"id": "r1", "effect": "Permit"}]
	  }
	}`, id, version, denyOverridesRule)
}

func TestMemStore_ReferenceResolution(t *testing.T) {
	store := NewMemStore()
	store.AddPolicy(simplePolicy(t, "p1", "1.0"))
	store.AddPolicy(simplePolicy(t, "p1", "1.5"))
	store.AddPolicy(simplePolicy(t, "p1", "2.0"))

	tests := map[string]struct {
		constraints policy.VersionConstraints
		expected    string
	}{
		"unconstrained picks the highest": {policy.VersionConstraints{}, "2.0"},
		"latest bound":                    {policy.VersionConstraints{LatestVersion: "1.9"}, "1.5"},
		"exact pattern":                   {policy.VersionConstraints{Version: "1.0"}, "1.0"},
		"range":                           {policy.VersionConstraints{EarliestVersion: "1.1", LatestVersion: "1.9"}, "1.5"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			p, err := store.ResolvePolicy("p1", tc.constraints)
			require.NoError(t, err)
			require.NotNil(t, p)
			assert.Equal(t, tc.expected, p.Version())
		})
	}

	t.Run("no satisfying version resolves to nil", func(t *testing.T) {
		p, err := store.ResolvePolicy("p1", policy.VersionConstraints{EarliestVersion: "3.0"})
		require.NoError(t, err)
		assert.Nil(t, p)
	})

	t.Run("unknown id resolves to nil", func(t *testing.T) {
		p, err := store.ResolvePolicy("unknown", policy.VersionConstraints{})
		require.NoError(t, err)
		assert.Nil(t, p)
	})
}

func TestFileStore(t *testing.T) {
	base := t.TempDir()
	for _, version := range []string{"1.0", "1.5", "2.0"} {
		dir := filepath.Join(base, version)
		require.NoError(t, os.MkdirAll(dir, 0o755))
		require.NoError(t, os.WriteFile(
			filepath.Join(dir, "p1.json"), []byte(versionedDocument("p1", version)), 0o644))
	}

	store := NewFileStore(base, WithRootPolicy("p1"))

	t.Run("resolves the highest satisfying version", func(t *testing.T) {
		p, err := store.ResolvePolicy("p1", policy.VersionConstraints{LatestVersion: "1.9"})
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.Equal(t, "1.5", p.Version())
	})

	t.Run("root resolution evaluates end to end", func(t *testing.T) {
		element, err := store.FindByTarget(nil)
		require.NoError(t, err)
		require.NotNil(t, element)

		result := element.Evaluate(newEmptyContext())
		assert.Equal(t, decision.Permit, result.Decision)
	})

	t.Run("missing policy resolves to nil", func(t *testing.T) {
		p, err := store.ResolvePolicy("absent", policy.VersionConstraints{})
		require.NoError(t, err)
		assert.Nil(t, p)
	})

	t.Run("policy set lookup of a policy document fails", func(t *testing.T) {
		_, err := store.ResolvePolicySet("p1", policy.VersionConstraints{})
		assert.Error(t, err)
	})
}

func TestSQLStore(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	_, err = db.Exec(`CREATE TABLE policies (
		id       TEXT NOT NULL,
		version  TEXT NOT NULL,
		kind     TEXT NOT NULL,
		document TEXT NOT NULL,
		PRIMARY KEY (id, version, kind)
	)`)
	require.NoError(t, err)

	for _, version := range []string{"1.0", "2.0"} {
		_, err = db.Exec(
			"INSERT INTO policies (id, version, kind, document) VALUES (?, ?, ?, ?)",
			"p1", version, "policy", versionedDocument("p1", version))
		require.NoError(t, err)
	}

	store := NewSQLStore(db, WithSQLRootPolicy("p1"))

	t.Run("resolves the highest stored version", func(t *testing.T) {
		p, err := store.ResolvePolicy("p1", policy.VersionConstraints{})
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.Equal(t, "2.0", p.Version())
	})

	t.Run("constraints narrow the version", func(t *testing.T) {
		p, err := store.ResolvePolicy("p1", policy.VersionConstraints{LatestVersion: "1.5"})
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.Equal(t, "1.0", p.Version())
	})

	t.Run("root resolution evaluates end to end", func(t *testing.T) {
		element, err := store.FindByTarget(nil)
		require.NoError(t, err)
		require.NotNil(t, element)

		result := element.Evaluate(newEmptyContext())
		assert.Equal(t, decision.Permit, result.Decision)
	})

	t.Run("unknown id resolves to nil", func(t *testing.T) {
		p, err := store.ResolvePolicy("absent", policy.VersionConstraints{})
		require.NoError(t, err)
		assert.Nil(t, p)
	})
}
