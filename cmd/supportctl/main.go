// Command supportctl runs the customer-support orchestrator from the
// terminal: canned scenarios, an interactive chat on a ticket thread, store
// seeding and a listing of the tool catalogue.
package main

func main() {
	Execute()
}
