// Package outwriter renders ranking results and persona tables as text, CSV,
// JSON or Parquet.
package outwriter
