package stage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractDependencies(t *testing.T) {
	cases := []struct {
		name string
		code string
		want []string
	}{
		{
			name: "plain imports",
			code: "import asyncio\nimport logging\nimport json\n",
			want: []string{"asyncio", "logging"},
		},
		{
			name: "from imports keep the module",
			code: "from typing import Dict, List\nfrom fastapi.responses import JSONResponse\n",
			want: []string{"fastapi"},
		},
		{
			name: "aliases and lists",
			code: "import numpy as np, pandas as pd\nimport os.path\n",
			want: []string{"numpy", "pandas"},
		},
		{
			name: "indented and duplicated",
			code: "def f():\n    import requests\n    import requests\nimport httpx\n",
			want: []string{"httpx", "requests"},
		},
		{
			name: "relative and non-import lines",
			code: "from . import helpers\n# import nothing\nprint('import x')\n",
			want: []string{},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ExtractDependencies(tc.code))
		})
	}
}
