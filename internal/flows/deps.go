package flows

// Deps groups flow dependency sets. The root engine builds this once and
// delegates its methods to the matching flow.
type Deps struct {
	Login    LoginDeps
	Profile  ProfileDeps
	Logout   LogoutDeps
	Navigate NavigateDeps
}
