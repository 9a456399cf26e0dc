package host

import (
	"fmt"
	"strconv"
	"strings"
)

// Table maps each action to the argv that performs it. A nil entry means
// the action is unsupported.
type Table struct {
	Shutdown       func(delaySeconds int) []string
	Restart        []string
	CancelShutdown []string
	Sleep          []string
	Lock           []string
	Hibernate      []string
	OpenApp        func(name string) []string
	ProcessName    func(name string) string
	CloseApp       func(proc string) []string
	Key            func(key Key) []string
	Hotkey         func(keys []string) []string
	TypeText       func(text string) []string
	OpenURL        func(url string) []string
	Screenshot     func(path string) []string
}

// Tables holds the built-in command tables by GOOS.
var Tables = map[string]Table{
	"windows": windows,
	"linux":   linux,
}

// Virtual-key codes sent through WScript.Shell.SendKeys.
var windowsKeys = map[Key]int{
	KeyVolumeMute: 173,
	KeyVolumeDown: 174,
	KeyVolumeUp:   175,
	KeyNextTrack:  176,
	KeyPrevTrack:  177,
	KeyPlayPause:  179,
}

var sendKeysNames = map[string]string{
	"ctrl": "^", "control": "^", "alt": "%", "shift": "+",
	"enter": "{ENTER}", "escape": "{ESC}", "esc": "{ESC}", "tab": "{TAB}",
	"delete": "{DEL}", "backspace": "{BS}", "space": " ",
	"up": "{UP}", "down": "{DOWN}", "left": "{LEFT}", "right": "{RIGHT}",
	"home": "{HOME}", "end": "{END}", "f4": "{F4}", "f5": "{F5}", "f11": "{F11}",
}

func powershell(script string) []string {
	return []string{"powershell", "-NoProfile", "-NonInteractive", "-Command", script}
}

func psQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

var windows = Table{
	Shutdown: func(d int) []string {
		return []string{"shutdown", "/s", "/t", strconv.Itoa(d)}
	},
	Restart:        []string{"shutdown", "/r", "/t", "5"},
	CancelShutdown: []string{"shutdown", "/a"},
	Sleep:          []string{"rundll32.exe", "powrprof.dll,SetSuspendState", "0", "1", "0"},
	Lock:           []string{"rundll32.exe", "user32.dll,LockWorkStation"},
	Hibernate:      []string{"shutdown", "/h"},
	OpenApp: func(name string) []string {
		return []string{"cmd", "/C", "start", "", name}
	},
	ProcessName: func(name string) string {
		if strings.HasSuffix(strings.ToLower(name), ".exe") {
			return name
		}
		return name + ".exe"
	},
	CloseApp: func(proc string) []string {
		return []string{"taskkill", "/IM", proc, "/F"}
	},
	Key: func(k Key) []string {
		code, ok := windowsKeys[k]
		if !ok {
			return nil
		}
		return powershell(fmt.Sprintf("(New-Object -ComObject WScript.Shell).SendKeys([char]%d)", code))
	},
	Hotkey: func(keys []string) []string {
		// The Windows key has no SendKeys form; win+X goes through a key-event helper.
		if len(keys) > 0 && strings.EqualFold(keys[0], "win") {
			return powershell(winComboScript(keys[1:]))
		}
		var mods, rest strings.Builder
		for _, k := range keys {
			v, ok := sendKeysNames[strings.ToLower(k)]
			if !ok {
				v = strings.ToLower(k)
			}
			if v == "^" || v == "%" || v == "+" {
				mods.WriteString(v)
			} else {
				rest.WriteString(v)
			}
		}
		return powershell(fmt.Sprintf("(New-Object -ComObject WScript.Shell).SendKeys(%s)", psQuote(mods.String()+rest.String())))
	},
	TypeText: func(text string) []string {
		return powershell("Set-Clipboard -Value " + psQuote(text) + "; (New-Object -ComObject WScript.Shell).SendKeys('^v')")
	},
	OpenURL: func(url string) []string {
		return []string{"rundll32", "url.dll,FileProtocolHandler", url}
	},
	Screenshot: func(path string) []string {
		return powershell(`Add-Type -AssemblyName System.Windows.Forms,System.Drawing;` +
			`$b=[System.Windows.Forms.SystemInformation]::VirtualScreen;` +
			`$bmp=New-Object System.Drawing.Bitmap $b.Width,$b.Height;` +
			`$g=[System.Drawing.Graphics]::FromImage($bmp);` +
			`$g.CopyFromScreen($b.Left,$b.Top,0,0,$bmp.Size);` +
			`$bmp.Save(` + psQuote(path) + `,[System.Drawing.Imaging.ImageFormat]::Png)`)
	},
}

func winComboScript(keys []string) string {
	var b strings.Builder
	b.WriteString(`$s='[DllImport("user32.dll")]public static extern void keybd_event(byte k,byte s,int f,int e);';`)
	b.WriteString(`$k=Add-Type -MemberDefinition $s -Name K -Namespace W -PassThru;`)
	b.WriteString(`$k::keybd_event(0x5B,0,0,0);`)
	for _, k := range keys {
		if len(k) == 1 {
			c := strings.ToUpper(k)[0]
			fmt.Fprintf(&b, `$k::keybd_event(%d,0,0,0);$k::keybd_event(%d,0,2,0);`, c, c)
		}
	}
	b.WriteString(`$k::keybd_event(0x5B,0,2,0)`)
	return b.String()
}

var linuxKeys = map[Key]string{
	KeyVolumeUp:   "XF86AudioRaiseVolume",
	KeyVolumeDown: "XF86AudioLowerVolume",
	KeyVolumeMute: "XF86AudioMute",
	KeyPlayPause:  "XF86AudioPlay",
	KeyNextTrack:  "XF86AudioNext",
	KeyPrevTrack:  "XF86AudioPrev",
}

var xdotoolNames = map[string]string{
	"ctrl": "ctrl", "control": "ctrl", "alt": "alt", "shift": "shift",
	"win": "super", "escape": "Escape", "esc": "Escape", "enter": "Return",
	"tab": "Tab", "delete": "Delete", "backspace": "BackSpace", "space": "space",
}

var linux = Table{
	Shutdown: func(d int) []string {
		// shutdown(8) schedules in whole minutes.
		minutes := (d + 59) / 60
		return []string{"shutdown", "-h", "+" + strconv.Itoa(minutes)}
	},
	Restart:        []string{"systemctl", "reboot"},
	CancelShutdown: []string{"shutdown", "-c"},
	Sleep:          []string{"systemctl", "suspend"},
	Lock:           []string{"loginctl", "lock-session"},
	Hibernate:      []string{"systemctl", "hibernate"},
	OpenApp: func(name string) []string {
		return []string{"gtk-launch", name}
	},
	CloseApp: func(proc string) []string {
		return []string{"pkill", "-f", proc}
	},
	Key: func(k Key) []string {
		name, ok := linuxKeys[k]
		if !ok {
			return nil
		}
		return []string{"xdotool", "key", name}
	},
	Hotkey: func(keys []string) []string {
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			if v, ok := xdotoolNames[strings.ToLower(k)]; ok {
				k = v
			}
			parts = append(parts, k)
		}
		return []string{"xdotool", "key", strings.Join(parts, "+")}
	},
	TypeText: func(text string) []string {
		return []string{"xdotool", "type", "--delay", "20", "--", text}
	},
	OpenURL: func(url string) []string {
		return []string{"xdg-open", url}
	},
	Screenshot: func(path string) []string {
		return []string{"import", "-window", "root", path}
	},
}
