package hex

import (
	"context"
	"crypto/sha256"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/brightly-salty/gleam/pkg/engine"
)

// Dependency is a requirement of a published release.
type Dependency struct {
	Requirement string `json:"requirement"`
	Optional    bool   `json:"optional"`
	App         string `json:"app,omitempty"`
}

// Release is the metadata of one published version.
type Release struct {
	Name         string                `json:"-"`
	Version      string                `json:"version"`
	Checksum     string                `json:"checksum"`
	Requirements map[string]Dependency `json:"requirements"`
	Retired      bool                  `json:"-"`
	BuildTools   []string              `json:"-"`
}

type packageResponse struct {
	Name     string `json:"name"`
	Releases []struct {
		Version string `json:"version"`
	} `json:"releases"`
	Retirements map[string]any `json:"retirements"`
}

type releaseResponse struct {
	Version      string                `json:"version"`
	Checksum     string                `json:"checksum"`
	Requirements map[string]Dependency `json:"requirements"`
	Retirement   *struct {
		Reason string `json:"reason"`
	} `json:"retirement"`
	Meta struct {
		BuildTools []string `json:"build_tools"`
	} `json:"meta"`
}

// Versions lists the published versions of pkg, oldest first.
func (c *Client) Versions(ctx context.Context, pkg string) ([]string, error) {
	var body packageResponse
	resp, err := c.api.R().
		SetContext(ctx).
		SetResult(&body).
		SetError(&apiError{}).
		Get("/packages/" + url.PathEscape(pkg))
	if err := check(resp, err, "fetch versions of "+pkg); err != nil {
		return nil, err
	}

	versions := make([]string, 0, len(body.Releases))
	for _, r := range body.Releases {
		if semver.IsValid("v" + r.Version) {
			versions = append(versions, r.Version)
		}
	}
	sort.Slice(versions, func(i, j int) bool {
		return semver.Compare("v"+versions[i], "v"+versions[j]) < 0
	})
	return versions, nil
}

// Release fetches the metadata of pkg at version.
func (c *Client) Release(ctx context.Context, pkg, version string) (*Release, error) {
	var body releaseResponse
	resp, err := c.api.R().
		SetContext(ctx).
		SetResult(&body).
		SetError(&apiError{}).
		Get(releasePath(pkg, version))
	if err := check(resp, err, "fetch "+pkg+" "+version); err != nil {
		return nil, err
	}

	return &Release{
		Name:         pkg,
		Version:      body.Version,
		Checksum:     strings.ToUpper(body.Checksum),
		Requirements: body.Requirements,
		Retired:      body.Retirement != nil,
		BuildTools:   body.Meta.BuildTools,
	}, nil
}

// DownloadTarball fetches the tarball of pkg at version and verifies it
// against checksum when one is given.
func (c *Client) DownloadTarball(ctx context.Context, pkg, version, checksum string) ([]byte, error) {
	resp, err := c.repo.R().
		SetContext(ctx).
		SetHeader("Accept", "application/octet-stream").
		Get("/tarballs/" + url.PathEscape(pkg+"-"+version+".tar"))
	if err := check(resp, err, "download "+pkg+" "+version); err != nil {
		return nil, err
	}

	data := resp.Body()
	if checksum != "" {
		if got := Checksum(data); !strings.EqualFold(got, checksum) {
			return nil, engine.NewError(engine.ErrorKindDependency, "checksum mismatch for "+pkg+" "+version,
				fmt.Errorf("expected %s, got %s", checksum, got))
		}
	}
	return data, nil
}

// Checksum is the upper-case hex SHA-256 of data, as Hex reports it.
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%X", sum[:])
}
