/*
Copyright 2026 The Machine Controller Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package version

import (
	"runtime/debug"
)

const unknownRevision = "unknown"

// BuildInfoReader matches debug.ReadBuildInfo.
type BuildInfoReader func() (*debug.BuildInfo, bool)

// Info describes the running binary.
type Info struct {
	ModuleVersion string
	Revision      string
	Dirty         bool
	GoVersion     string
	readBuildInfo BuildInfoReader
}

// Option configures Get.
type Option func(*Info)

// WithReadBuildInfoFunc replaces debug.ReadBuildInfo, mostly for tests.
func WithReadBuildInfoFunc(f BuildInfoReader) Option {
	return func(i *Info) {
		i.readBuildInfo = f
	}
}

// Get reads the build info of the running binary. Fields it cannot determine
// keep their zero value, except Revision which falls back to "unknown".
func Get(opts ...Option) Info {
	info := Info{
		Revision:      unknownRevision,
		readBuildInfo: debug.ReadBuildInfo,
	}
	for _, opt := range opts {
		opt(&info)
	}

	bi, ok := info.readBuildInfo()
	if !ok || bi == nil {
		return info
	}

	info.GoVersion = bi.GoVersion
	if bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.ModuleVersion = bi.Main.Version
	}

	for _, setting := range bi.Settings {
		switch setting.Key {
		case "vcs.revision":
			info.Revision = setting.Value
		case "vcs.modified":
			info.Dirty = setting.Value == "true"
		}
	}

	return info
}

// String prefers the module version, then the VCS revision, then "dev".
func (i Info) String() string {
	if i.ModuleVersion != "" {
		return i.ModuleVersion
	}
	if i.Revision == unknownRevision {
		return "dev"
	}
	if i.Dirty {
		return i.Revision + "-dirty"
	}
	return i.Revision
}

// LogFields returns the info as key/value pairs for a sugared logger.
func (i Info) LogFields() []interface{} {
	return []interface{}{
		"version", i.String(),
		"revision", i.Revision,
		"go", i.GoVersion,
	}
}
