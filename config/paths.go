package config

import (
	"os"
	"path"

	"github.com/mitchellh/go-homedir"
)

const DissectorsPath = "dissectors"

func ExpandHomePath(path string) string {
	res, err := homedir.Expand(path)
	if err != nil {
		panic(err)
	}
	return res
}

// ExpandDissectorsPath resolves an output directory against the home
// directory. Absolute paths pass through unchanged.
func ExpandDissectorsPath(homePath, outDir string) string {
	if outDir == "" {
		outDir = DissectorsPath
	}
	if path.IsAbs(outDir) {
		return outDir
	}
	return path.Join(homePath, outDir)
}

func InitDissectorsDir(homePath string) error {
	p := ExpandDissectorsPath(homePath, DissectorsPath)
	return os.MkdirAll(p, 0700)
}
