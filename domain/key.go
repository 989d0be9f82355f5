package domain

import (
	"fmt"
	"strings"
)

// BaseRepositoryKey derives the stable index key of a repository from its
// remote URL: everything through the last "@" is stripped (or an http/https
// scheme when there is no user part), along with a trailing ".git".
// "git@github.com:user/repo.git" becomes "github.com:user/repo" and
// "https://github.com/user/repo.git" becomes "github.com/user/repo".
func BaseRepositoryKey(remoteURL string) (string, error) {
	if remoteURL == "" {
		return "", fmt.Errorf("%w: empty URL", ErrInvalidRemoteURL)
	}

	key := remoteURL
	if at := strings.LastIndex(key, "@"); at >= 0 {
		key = key[at+1:]
	} else {
		key = strings.TrimPrefix(key, "https://")
		key = strings.TrimPrefix(key, "http://")
	}
	key = strings.TrimSuffix(key, ".git")

	if key == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidRemoteURL, remoteURL)
	}
	return key, nil
}

// RepositoryKey derives the index key for a hidden directory inside the
// repository identified by remoteURL. An empty directory yields the base key
// itself. Same inputs always produce the same key.
func RepositoryKey(remoteURL, directory string) (string, error) {
	base, err := BaseRepositoryKey(remoteURL)
	if err != nil {
		return "", err
	}
	if directory == "" {
		return base, nil
	}
	return base + "/" + directory, nil
}

// HiddenRemoteName flattens a repository key into a name the hosting provider
// accepts, replacing path and host separators with dashes.
func HiddenRemoteName(key string) string {
	name := strings.ReplaceAll(key, "/", "-")
	return strings.ReplaceAll(name, ":", "-")
}
