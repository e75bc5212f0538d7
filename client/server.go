package client

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/blang/semver"

	"github.com/janelia-flyem/libdvid-go/dvid"
)

// ServerService answers server-wide queries, e.g., the DVID version.
type ServerService struct {
	transport Transport
}

// NewServerService returns a service for server-level endpoints using
// the given transport.
func NewServerService(transport Transport) ServerService {
	return ServerService{transport}
}

// Info returns the JSON server information from /api/server/info.
func (s ServerService) Info() (map[string]interface{}, error) {
	status, data, err := s.transport.Do(GET, "/server/info", nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: server info returned status %d", dvid.ErrProtocol, status)
	}
	var info map[string]interface{}
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("%w: bad server info JSON: %v", dvid.ErrProtocol, err)
	}
	return info, nil
}

// Version returns the server's DVID version.
func (s ServerService) Version() (semver.Version, error) {
	info, err := s.Info()
	if err != nil {
		return semver.Version{}, err
	}
	verStr, ok := info["DVID Version"].(string)
	if !ok {
		return semver.Version{}, fmt.Errorf("%w: server info has no DVID Version", dvid.ErrProtocol)
	}
	// Version strings can carry build metadata after a space.
	if i := strings.IndexByte(verStr, ' '); i >= 0 {
		verStr = verStr[:i]
	}
	v, err := semver.ParseTolerant(verStr)
	if err != nil {
		return semver.Version{}, fmt.Errorf("%w: bad DVID version %q: %v", dvid.ErrProtocol, verStr, err)
	}
	return v, nil
}

// CheckVersion returns an error if the server's version is below the
// given minimum, e.g., "0.8.0".
func (s ServerService) CheckVersion(minimum string) error {
	minVer, err := semver.ParseTolerant(minimum)
	if err != nil {
		return fmt.Errorf("%w: bad minimum version %q: %v", dvid.ErrInvalidArgument, minimum, err)
	}
	v, err := s.Version()
	if err != nil {
		return err
	}
	if v.LT(minVer) {
		return fmt.Errorf("DVID server version %s below required %s", v, minVer)
	}
	return nil
}
