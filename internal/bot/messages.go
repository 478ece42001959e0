package bot

const welcomeMessage = `Welcome to Premium Access Bot!

This bot manages access to premium content.

Features:
- Add premium users with time limits
- Automatic removal after expiry
- Admin-only commands

You need admin privileges to use the management commands.
Send /help for the full command list.`

const helpMessage = `Commands:

/status - Show your own subscription state
/plans - List available plans

Admin commands:
/addpremium <user_id> <duration> [tier] - Grant or renew access
  Duration formats: 30min, 2hour, 7day, 2week, 1month
/listusers - List all premium users
/export - Export all subscriptions as CSV

File relay:
/download <url> - Relay a direct download link into this chat
/rename <name> - Rename the pending file
/upload - Confirm and start the transfer`

const unauthorizedMessage = "You are not authorized to use this command."
