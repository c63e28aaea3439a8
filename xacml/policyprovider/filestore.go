package policyprovider

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/CameronXie/xacml-engine/xacml/combining"
	"github.com/CameronXie/xacml-engine/xacml/evalctx"
	"github.com/CameronXie/xacml-engine/xacml/policy"
)

// FileStore serves JSON policy documents from the local filesystem. The
// layout is <base>/<version>/<id>.json, one document per policy or policy
// set version.
type FileStore struct {
	basePath  string
	rootID    string
	rootIsSet bool
	hasRoot   bool
}

// FileStoreOption configures a FileStore.
type FileStoreOption func(*FileStore)

// WithRootPolicy makes FindByTarget resolve the given policy id.
func WithRootPolicy(id string) FileStoreOption {
	return func(f *FileStore) {
		f.rootID, f.rootIsSet, f.hasRoot = id, false, true
	}
}

// WithRootPolicySet makes FindByTarget resolve the given policy set id.
func WithRootPolicySet(id string) FileStoreOption {
	return func(f *FileStore) {
		f.rootID, f.rootIsSet, f.hasRoot = id, true, true
	}
}

// NewFileStore creates a filesystem-backed policy store rooted at basePath.
func NewFileStore(basePath string, options ...FileStoreOption) *FileStore {
	f := &FileStore{basePath: basePath}
	for _, option := range options {
		option(f)
	}
	return f
}

// FindByTarget resolves the configured root document.
func (f *FileStore) FindByTarget(_ *evalctx.Context) (combining.Element, error) {
	if !f.hasRoot {
		return nil, nil
	}

	if f.rootIsSet {
		ps, err := f.ResolvePolicySet(f.rootID, policy.VersionConstraints{})
		if err != nil || ps == nil {
			return nil, err
		}
		return ps, nil
	}

	p, err := f.ResolvePolicy(f.rootID, policy.VersionConstraints{})
	if err != nil || p == nil {
		return nil, err
	}
	return p, nil
}

// ResolvePolicy implements policy.ReferenceResolver against the filesystem
// layout, picking the highest stored version satisfying the constraints.
func (f *FileStore) ResolvePolicy(id string, constraints policy.VersionConstraints) (*policy.Policy, error) {
	element, err := f.resolve(id, constraints)
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
func (f *FileStore) ResolvePolicySet(id string, constraints policy.VersionConstraints) (*policy.PolicySet, error) {
	element, err := f.resolve(id, constraints)
	if err != nil || element == nil {
		return nil, err
	}

	ps, ok := element.(*policy.PolicySet)
	if !ok {
		return nil, fmt.Errorf("document %s holds a policy, expected a policy set", id)
	}
	return ps, nil
}

func (f *FileStore) resolve(id string, constraints policy.VersionConstraints) (combining.Element, error) {
	version, err := f.bestVersion(id, constraints)
	if err != nil || version == "" {
		return nil, err
	}

	documentPath := filepath.Join(f.basePath, version, id+".json")
	content, err := os.ReadFile(documentPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy %s@%s: %w", id, version, err)
	}
	return DecodeDocument(content, f)
}

// bestVersion scans the version directories for the highest one holding the
// document and satisfying the constraints.
func (f *FileStore) bestVersion(id string, constraints policy.VersionConstraints) (string, error) {
	entries, err := os.ReadDir(f.basePath)
	if err != nil {
		return "", fmt.Errorf("failed to list policy versions: %w", err)
	}

	var best string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		version := entry.Name()
		if !constraints.Match(version) {
			continue
		}
		if _, err := os.Stat(filepath.Join(f.basePath, version, id+".json")); err != nil {
			continue
		}
		if best == "" || policy.CompareVersions(version, best) > 0 {
			best = version
		}
	}
	return best, nil
}
