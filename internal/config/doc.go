// Package config defines the format-agnostic document model of a compilation,
// along with the Loader interface for reading it from various sources.
//
// The config.Model is the single source of truth for the app package: it
// carries the concept tree, the constraint kinds and programs declared by the
// document, and the compile settings. Concrete loaders, such as the HCL one,
// are provided in separate packages.
package config
