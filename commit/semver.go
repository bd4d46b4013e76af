package commit

import (
	"errors"
	"sort"

	"github.com/blang/semver/v4"
)

var ErrNoTags = errors.New("commit: no release tags found")

// LatestTag returns the tag with the highest semantic version, ignoring
// pre-releases and tags that are not versions. A leading "v" and missing
// minor or patch components are tolerated.
func LatestTag(tags []string) (string, error) {
	type tagVersion struct {
		tag string
		v   semver.Version
	}
	var versions []tagVersion
	for _, t := range tags {
		v, err := semver.ParseTolerant(t)
		if err != nil {
			continue
		}
		if len(v.Pre) > 0 {
			continue
		}
		versions = append(versions, tagVersion{tag: t, v: v})
	}
	if len(versions) == 0 {
		return "", ErrNoTags
	}

	sort.SliceStable(versions, func(i, j int) bool {
		return versions[i].v.LT(versions[j].v)
	})
	return versions[len(versions)-1].tag, nil
}
