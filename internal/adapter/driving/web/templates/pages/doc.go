// Package pages holds one templ component per routed page.
package pages
