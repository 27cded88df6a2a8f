// Package file stores dialogue documents as YAML or JSON files, one file per tree.
package file
