// Package adminsdk is a client for the admissions finalization admin API.
//
// Every call except the health probes needs the admin key:
//
//	c := adminsdk.NewClient("http://localhost:8080", os.Getenv("ADMIN_API_KEY"))
//	report, err := c.Finalize(ctx, adminsdk.FinalizeRequest{})
//	if adminsdk.IsCode(err, adminsdk.ErrorCodeInProgress) {
//		// another run is active
//	}
package adminsdk
