package version

import (
	"fmt"
	"runtime"

	"github.com/Masterminds/semver/v3"

	"github.com/teranos/topicmap/errors"
)

// Build information. These variables are set at build time via ldflags.
var (
	// CommitHash is the git commit hash when the binary was built
	CommitHash = "dev"

	// BuildTime is when the binary was built
	BuildTime = "unknown"

	// Version is the semantic version (if tagged)
	Version = "dev"
)

// Protocol is the version of the websocket protocol spoken with browser
// clients. ProtocolConstraint lists the client versions accepted in a hello.
const (
	Protocol           = "1.1.0"
	ProtocolConstraint = ">= 1.0.0, < 2.0.0"
)

// Info contains version and build information
type Info struct {
	CommitHash string `json:"commit_hash"`
	BuildTime  string `json:"build_time"`
	Version    string `json:"version"`
	Protocol   string `json:"protocol"`
	GoVersion  string `json:"go_version"`
	Platform   string `json:"platform"`
}

// Get returns the current version information
func Get() Info {
	return Info{
		CommitHash: CommitHash,
		BuildTime:  BuildTime,
		Version:    Version,
		Protocol:   Protocol,
		GoVersion:  runtime.Version(),
		Platform:   fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// String returns a human-readable version string
func (i Info) String() string {
	if i.Version != "dev" {
		return fmt.Sprintf("topicmap %s (commit %s, built %s)", i.Version, i.CommitHash, i.BuildTime)
	}
	return fmt.Sprintf("topicmap dev (commit %s, built %s)", i.CommitHash, i.BuildTime)
}

// Short returns a short version string with just the commit hash
func (i Info) Short() string {
	if len(i.CommitHash) >= 7 {
		return i.CommitHash[:7]
	}
	return i.CommitHash
}

// CheckProtocol reports whether a client speaking protocol version v can be served
func CheckProtocol(v string) error {
	if v == "" {
		return errors.NewInvalidRequestError("hello without protocol version")
	}
	clientVer, err := semver.NewVersion(v)
	if err != nil {
		return errors.Mark(errors.Wrapf(err, "invalid protocol version %q", v), errors.ErrInvalidRequest)
	}
	constraint, err := semver.NewConstraint(ProtocolConstraint)
	if err != nil {
		return errors.Wrapf(err, "invalid protocol constraint %s", ProtocolConstraint)
	}
	if !constraint.Check(clientVer) {
		return errors.WithHint(
			errors.NewInvalidRequestError("protocol %s not supported, server speaks %s", v, Protocol),
			"reload the page to fetch a matching client")
	}
	return nil
}
