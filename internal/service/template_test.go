package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTemplateInputValidate(t *testing.T) {
	valid := TemplateInput{
		FirmID:            1,
		Role:              "senior_accountant",
		DefaultPercentage: dec("40"),
		MinPercentage:     dec("20"),
		MaxPercentage:     dec("60"),
	}

	tests := []struct {
		name   string
		mutate func(*TemplateInput)
		ok     bool
	}{
		{name: "valid band", mutate: func(*TemplateInput) {}, ok: true},
		{name: "missing firm", mutate: func(in *TemplateInput) { in.FirmID = 0 }},
		{name: "missing role", mutate: func(in *TemplateInput) { in.Role = "" }},
		{name: "negative min", mutate: func(in *TemplateInput) { in.MinPercentage = dec("-1") }},
		{name: "max above hundred", mutate: func(in *TemplateInput) { in.MaxPercentage = dec("101") }},
		{name: "inverted band", mutate: func(in *TemplateInput) {
			in.MinPercentage = dec("60")
			in.MaxPercentage = dec("20")
			in.DefaultPercentage = dec("40")
		}},
		{name: "default below band", mutate: func(in *TemplateInput) { in.DefaultPercentage = dec("10") }},
		{name: "default above band", mutate: func(in *TemplateInput) { in.DefaultPercentage = dec("70") }},
		{name: "degenerate single point band", mutate: func(in *TemplateInput) {
			in.MinPercentage = dec("40")
			in.MaxPercentage = dec("40")
		}, ok: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)
			err := in.validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
