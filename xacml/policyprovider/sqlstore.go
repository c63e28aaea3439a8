package policyprovider

import (
	"database/sql"
	"fmt"

	"github.com/CameronXie/xacml-engine/xacml/combining"
	"github.com/CameronXie/xacml-engine/xacml/evalctx"
	"github.com/CameronXie/xacml-engine/xacml/policy"
)

// Document kinds stored in the policies table.
const (
	kindPolicy    = "policy"
	kindPolicySet = "policySet"
)

// SQLStore serves JSON policy documents from a relational table:
//
//	CREATE TABLE policies (
//	    id       VARCHAR(255) NOT NULL,
//	    version  VARCHAR(64)  NOT NULL,
//	    kind     VARCHAR(16)  NOT NULL,
//	    document TEXT         NOT NULL,
//	    PRIMARY KEY (id, version, kind)
//	);
//
// The driver is the caller's choice; both MySQL and SQLite layouts work.
type SQLStore struct {
	db        *sql.DB
	rootID    string
	rootIsSet bool
	hasRoot   bool
}

// SQLStoreOption configures a SQLStore.
type SQLStoreOption func(*SQLStore)

// WithSQLRootPolicy makes FindByTarget resolve the given policy id.
func WithSQLRootPolicy(id string) SQLStoreOption {
	return func(s *SQLStore) {
		s.rootID, s.rootIsSet, s.hasRoot = id, false, true
	}
}

// WithSQLRootPolicySet makes FindByTarget resolve the given policy set id.
func WithSQLRootPolicySet(id string) SQLStoreOption {
	return func(s *SQLStore) {
		s.rootID, s.rootIsSet, s.hasRoot = id, true, true
	}
}

// NewSQLStore creates a policy store reading documents through db.
func NewSQLStore(db *sql.DB, options ...SQLStoreOption) *SQLStore {
	s := &SQLStore{db: db}
	for _, option := range options {
		option(s)
	}
	return s
}

// FindByTarget resolves the configured root document.
func (s *SQLStore) FindByTarget(_ *evalctx.Context) (combining.Element, error) {
	if !s.hasRoot {
		return nil, nil
	}

	if s.rootIsSet {
		ps, err := s.ResolvePolicySet(s.rootID, policy.VersionConstraints{})
		if err != nil || ps == nil {
			return nil, err
		}
		return ps, nil
	}

	p, err := s.ResolvePolicy(s.rootID, policy.VersionConstraints{})
	if err != nil || p == nil {
		return nil, err
	}
	return p, nil
}

// ResolvePolicy implements policy.ReferenceResolver, picking the highest
// stored version satisfying the constraints.
func (s *SQLStore) ResolvePolicy(id string, constraints policy.VersionConstraints) (*policy.Policy, error) {
	element, err := s.resolve(id, kindPolicy, constraints)
	if err != nil || element == nil {
		return nil, err
	}

	p, ok := element.(*policy.Policy)
	if !ok {
		return nil, fmt.Errorf("document %s holds a policy set, expected a policy", id)
	}
	return p, nil
}

// ResolvePolicySet implements policy.ReferenceResolver.
func (s *SQLStore) ResolvePolicySet(id string, constraints policy.VersionConstraints) (*policy.PolicySet, error) {
	element, err := s.resolve(id, kindPolicySet, constraints)
	if err != nil || element == nil {
		return nil, err
	}

	ps, ok := element.(*policy.PolicySet)
	if !ok {
		return nil, fmt.Errorf("document %s holds a policy, expected a policy set", id)
	}
	return ps, nil
}

func (s *SQLStore) resolve(id, kind string, constraints policy.VersionConstraints) (combining.Element, error) {
	rows, err := s.db.Query(
		"SELECT version, document FROM policies WHERE id = ? AND kind = ?", id, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to query policy %s: %w", id, err)
	}
	defer func() { _ = rows.Close() }()

	var bestVersion string
	var bestDocument []byte
	for rows.Next() {
		var version string
		var document []byte
		if err := rows.Scan(&version, &document); err != nil {
			return nil, fmt.Errorf("failed to scan policy %s: %w", id, err)
		}

		if !constraints.Match(version) {
			continue
		}
		if bestVersion == "" || policy.CompareVersions(version, bestVersion) > 0 {
			bestVersion, bestDocument = version, document
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read policy %s: %w", id, err)
	}

	if bestVersion == "" {
		return nil, nil
	}
	return DecodeDocument(bestDocument, s)
}
