// Package rewire is a dependency-injection runtime. Given a key it builds an
// object graph of collaborating instances, resolving provider dependencies
// transitively, applying scopes, and surviving circular dependencies by
// substituting deferred placeholders that are redirected to the real object
// once construction completes.
//
// Providers are plain functions registered with Bind; cycles through an
// interface type are broken with a placeholder whose adapter is registered
// with WithAdapter. Member injection of `inject`-tagged fields is deferred
// until the whole graph of a top-level resolution is stable.
package rewire
