// Package changelog drafts NEWS/ChangeLog entries for projects hosted on
// GitLab by reading the issues, merge requests and translations referenced by
// a range of git commits.
//
// Related packages: config, commit, tracker, locale, runner, model, vcs,
// vcs/gitcli
package changelog

import "github.com/jeffrom/gitlab-changelog/config"

// Config holds most of the configuration variables for gitlab-changelog.
// This struct is intended for command-line use.
//
// See "go doc github.com/jeffrom/gitlab-changelog/config Config" for more
// information.
type Config = config.Config
