// Copyright 2025 Archivemind Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package openai

import (
	"regexp"
	"strings"
)

var (
	// `{ topic":` or `, type":` -> the opening quote of the key got dropped.
	missingOpenQuote = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z_ ]*)(":)`)
	// `, }` or `, ]` -> drop the trailing comma.
	trailingComma = regexp.MustCompile(`,\s*([}\]])`)
)

// stripFences removes markdown code fences some models wrap around
// JSON despite instructions.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// repairJSON fixes the malformations local models produce most often:
// missing opening quotes on keys and trailing commas.
func repairJSON(s string) string {
	s = missingOpenQuote.ReplaceAllString(s, `$1"$2$3`)
	s = trailingComma.ReplaceAllString(s, `$1`)
	return s
}
