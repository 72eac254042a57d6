// Package hcl provides the concrete HCL implementation of the config.Loader
// interface. It is responsible for file parsing, translation of `concept`,
// `constraint`, `program` and `compile` blocks into the config model, and the
// evaluation of the expressions those blocks carry.
package hcl
