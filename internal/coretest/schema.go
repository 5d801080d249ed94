package coretest

import _ "embed"

//go:embed testdata/schema.sql
var schemaSQL string
