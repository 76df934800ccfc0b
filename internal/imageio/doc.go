// Package imageio decodes card images from disk and prepares reference
// images for comparison.
package imageio
