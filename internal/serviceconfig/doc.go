// Package serviceconfig selects, fetches, and validates remote service
// configuration documents. The selector walks the paginated rollout history
// to find the configuration currently receiving traffic, the fetcher
// retrieves one document by URL, and the validator checks identity fields
// and applies the sandbox-environment rewrite before a document is trusted.
package serviceconfig
