package store

import (
	"fmt"

	"modpanel/api/model"
)

const echoCode = `class Function:
    def interactionUser(self):
        return {"description": "Returns its arguments", "usage": {"text": "text to echo"}}

    def execute(self, args):
        return args
`

const detectCode = `class Function:
    def interactionUser(self):
        return {"description": "Finds objects in an image", "usage": {}, "file_upload": {"allowed": True, "types": ["image/png", "image/jpeg"], "multiple": False}}

    def execute(self, args):
        return detect(args["img_paths"])
`

// Seed creates the default and admin roles, the administrator and two
// approved demo functions. It expects an empty store.
func (db *DB) Seed(adminUser, adminPassword string) error {
	echo := db.CreateFunction(model.Function{
		Name:         "echo",
		Description:  "Returns its arguments",
		FunctionType: "text/code",
		Approved:     true,
		Code:         echoCode,
		Kind:         model.KindEcho,
		Interaction: model.Interaction{
			Description: "Returns its arguments",
			Usage:       model.Usage{{Name: "text", Prompt: "text to echo"}},
		},
	})
	detect := db.CreateFunction(model.Function{
		Name:         "detect",
		Description:  "Finds objects in an image",
		FunctionType: "image",
		Approved:     true,
		Code:         detectCode,
		Kind:         model.KindDetect,
		Interaction: model.Interaction{
			Description: "Finds objects in an image",
			FileUpload:  &model.FileUpload{Allowed: true, Types: []string{"image/png", "image/jpeg"}},
		},
	})

	userRole, err := db.SaveRole(model.Role{
		Name:        model.DefaultRole,
		Description: "Default group",
		Functions:   []int{echo.ID},
	})
	if err != nil {
		return fmt.Errorf("seed user role: %w", err)
	}
	adminRole, err := db.SaveRole(model.Role{
		Name:        "admin",
		Description: "Full access",
		IsAdmin:     true,
		Functions:   []int{echo.ID, detect.ID},
	})
	if err != nil {
		return fmt.Errorf("seed admin role: %w", err)
	}

	admin, err := db.CreateUser(adminUser, adminUser+"@localhost", adminPassword, []int{userRole, adminRole})
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	db.mu.Lock()
	db.functions[echo.ID].AuthorID = admin.ID
	db.functions[detect.ID].AuthorID = admin.ID
	db.mu.Unlock()
	return nil
}
