package file

type Signer interface {
	MediaToken(userID int, path string) (string, error)
	ValidateMediaToken(tokenStr, path string) error
}
