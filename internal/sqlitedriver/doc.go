// Copyright 2026 Handrail Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package sqlitedriver registers a SQLite database/sql driver under the name
// "sqlite3". When built with CGO it uses go-sqlcipher, which supports
// SQLCipher encryption of the session database (PRAGMA key). When CGO is
// unavailable it falls back to the pure-Go modernc.org/sqlite driver,
// functional but without encryption support.
//
// Import this package for its side effects only:
//
//	import _ "github.com/handrail-labs/handrail/internal/sqlitedriver"
package sqlitedriver
