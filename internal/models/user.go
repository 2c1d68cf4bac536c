package models

// UserRole represents the roles carried in access tokens.
type UserRole string

const (
	RoleTeacher      UserRole = "teacher"
	RoleClassTeacher UserRole = "class_teacher"
	RoleAdminTeacher UserRole = "admin_teacher"
)

// Permission names a capability granted through roles.
type Permission string

const (
	PermissionAttendanceRead Permission = "attendance.read"
	PermissionMarksRead      Permission = "marks.read"
	PermissionProgressRead   Permission = "progress.read"
	PermissionLeaveRead      Permission = "leave.read"
	PermissionDashboardRead  Permission = "dashboard.read"
	PermissionAdminRead      Permission = "admin.read"
)

var teachingPermissions = []Permission{
	PermissionAttendanceRead,
	PermissionMarksRead,
	PermissionProgressRead,
	PermissionLeaveRead,
	PermissionDashboardRead,
}

// RolePermissions lists the read permissions granted to each role.
var RolePermissions = map[UserRole][]Permission{
	RoleTeacher:      teachingPermissions,
	RoleClassTeacher: teachingPermissions,
	RoleAdminTeacher: append(append([]Permission{}, teachingPermissions...), PermissionAdminRead),
}
