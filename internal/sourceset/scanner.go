package sourceset

import (
	"io/fs"
	"path/filepath"
	"strings"
)

const (
	kotlinExtensionConstant = ".kt"
	javaExtensionConstant   = ".java"
	sourceRootConstant      = "src"
)

// Source set directories counted by ScanSourceFiles.
var countedSourceSetNames = []string{"main", "debug", "release", "test", "androidTest"}

// ScanSourceFiles counts the Kotlin and Java files under the module's
// counted source sets. The result is never below one so callers can use it
// directly as a tolerance denominator.
func ScanSourceFiles(moduleDirectory string) int {
	total := 0
	for _, sourceSetName := range countedSourceSetNames {
		sourceSetDirectory := filepath.Join(moduleDirectory, sourceRootConstant, sourceSetName)
		total += len(CollectSourceFiles(sourceSetDirectory))
	}
	if total < 1 {
		return 1
	}
	return total
}

// CollectSourceFiles returns every Kotlin and Java file under the provided
// directory in lexical walk order. A missing directory yields no files.
func CollectSourceFiles(rootDirectory string) []string {
	return CollectFiles(rootDirectory, IsSourceFile)
}

// CollectFiles walks the directory and returns the paths accepted by the
// predicate in lexical order. A missing directory yields no files.
func CollectFiles(rootDirectory string, accept func(path string) bool) []string {
	var collected []string
	walkError := filepath.WalkDir(rootDirectory, func(path string, entry fs.DirEntry, entryError error) error {
		if entryError != nil {
			return nil
		}
		if entry.IsDir() {
			return nil
		}
		if accept == nil || accept(path) {
			collected = append(collected, path)
		}
		return nil
	})
	if walkError != nil {
		return nil
	}
	return collected
}

// IsSourceFile reports whether the path names a Kotlin or Java file.
func IsSourceFile(path string) bool {
	extension := strings.ToLower(filepath.Ext(path))
	return extension == kotlinExtensionConstant || extension == javaExtensionConstant
}

// IsKotlinFile reports whether the path names a Kotlin file.
func IsKotlinFile(path string) bool {
	return strings.ToLower(filepath.Ext(path)) == kotlinExtensionConstant
}

// IsJavaFile reports whether the path names a Java file.
func IsJavaFile(path string) bool {
	return strings.ToLower(filepath.Ext(path)) == javaExtensionConstant
}

// ModuleRelativePath renders the path relative to the module directory in
// forward-slash form, falling back to the input when it lies outside.
func ModuleRelativePath(moduleDirectory string, path string) string {
	relativePath, relativeError := filepath.Rel(moduleDirectory, path)
	if relativeError != nil || strings.HasPrefix(relativePath, "..") {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(relativePath)
}
