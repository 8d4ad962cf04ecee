// Package testinfra starts disposable containers for integration tests.
//
// Tests using it carry the integration build tag and skip when Docker is
// unavailable:
//
//	func TestSomething(t *testing.T) {
//	    testinfra.SkipIfNoDocker(t)
//	    pg := testinfra.NewPostgres(t)
//	    db, err := database.Connect(database.Options{URL: pg.DSN})
//	    // ...
//	}
package testinfra
