package validate_test

import (
	"testing"

	"github.com/ardanlabs/favorites/business/sys/validate"
)

const (
	success = "\u2713"
	failed  = "\u2717"
)

type request struct {
	User  string `json:"user" validate:"required,account"`
	Color string `json:"color" validate:"max=50"`
}

func Test_Check(t *testing.T) {
	t.Log("Given the need to validate request models.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen the model is valid.", testID)
		{
			r := request{User: "0xdd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA4", Color: "blue"}
			if err := validate.Check(r); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould accept the model: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould accept the model.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen the model is invalid.", testID)
		{
			err := validate.Check(request{User: "kennedy"})
			if !validate.IsFieldErrors(err) {
				t.Fatalf("\t%s\tTest %d:\tShould get field errors: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould get field errors.", success, testID)

			fields := validate.GetFieldErrors(err).Fields()
			if fields["user"] != "user must be a hex encoded account" {
				t.Fatalf("\t%s\tTest %d:\tShould name the json field in the message: %v", failed, testID, fields)
			}
			t.Logf("\t%s\tTest %d:\tShould name the json field in the message.", success, testID)
		}
	}
}
