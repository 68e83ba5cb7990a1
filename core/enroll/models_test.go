package enroll

import (
	"reflect"
	"testing"

	"github.com/go-playground/validator/v10"
)

func TestProgress_State(t *testing.T) {
	tests := []struct {
		percent int
		want    string
	}{
		{percent: 0, want: StateEnrolled},
		{percent: 1, want: StateInProgress},
		{percent: 50, want: StateInProgress},
		{percent: 99, want: StateInProgress},
		{percent: 100, want: StateCompleted},
	}
	for _, tt := range tests {
		pg := Progress{PercentComplete: tt.percent}
		if got := pg.State(); got != tt.want {
			t.Errorf("State() at %d%% = %s, want %s", tt.percent, got, tt.want)
		}
	}
}

func TestProgressUpdate_Validate(t *testing.T) {
	validate := validator.New()

	tests := []struct {
		name        string
		update      ProgressUpdate
		wantIndices []int
		wantErr     bool
	}{
		{
			name:        "dedupes and sorts",
			update:      ProgressUpdate{CompletedUnitIndices: []int{3, 1, 3, 0, 1}},
			wantIndices: []int{0, 1, 3},
		},
		{
			name:        "already normal",
			update:      ProgressUpdate{CompletedUnitIndices: []int{0, 1, 2}},
			wantIndices: []int{0, 1, 2},
		},
		{
			name:    "negative index",
			update:  ProgressUpdate{CompletedUnitIndices: []int{0, -1}},
			wantErr: true,
		},
		{
			name:    "negative last viewed",
			update:  ProgressUpdate{CompletedUnitIndices: []int{0}, LastViewedIndex: -2},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.update.Validate(validate)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Validate() expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate() unexpected error = %v", err)
			}
			if !reflect.DeepEqual(tt.update.CompletedUnitIndices, tt.wantIndices) {
				t.Errorf("indices = %v, want %v", tt.update.CompletedUnitIndices, tt.wantIndices)
			}
		})
	}
}
