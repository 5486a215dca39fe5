// Package catalog describes catalog items and loads them from a manifest.
//
// A manifest is a YAML (or JSON) document listing items with their remote assets. Remote manifests are fetched
// with conditional requests and cached by URL, so an unchanged manifest is decoded once per process.
package catalog
