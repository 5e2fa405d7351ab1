// Package wallpaper stages APOD images on disk and sets them as the desktop
// background.
//
// Apply follows a fixed protocol: ensure the staging directory exists, empty
// it, write the image under a fresh name, then ask the OS to use that file.
// Every failure is an *ApplyError whose Kind is WriteFailed or OSRejected.
//
// Platform integration lives behind Setter. SystemSetter shells out to
// osascript, PowerShell, gsettings or feh; CommandSetter runs a configured
// command instead.
package wallpaper
