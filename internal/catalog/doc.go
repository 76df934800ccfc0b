// Package catalog maps a card's display name and set name to its stable
// catalog id.
//
// The catalog is a bulk JSON array of card objects as published by
// Scryfall ("oracle cards" or "default cards" exports). Only the id, name
// and set_name fields are read. Lookups ignore case, accents and Unicode
// composition differences, so "Heliod's Pilgrim" found on disk as
// "heliod's pilgrim" still resolves.
package catalog
