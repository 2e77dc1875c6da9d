// Package forge resolves repository refs to commit IDs through forge
// APIs (GitHub, GitLab) instead of a local git checkout. It is used to
// pin floating repositories without cloning them first.
package forge
