// Package models contains GORM persistence models and their conversions to
// and from domain entities. Domain types stay free of persistence tags;
// every table schema lives here and in the SQL migrations.
package models
