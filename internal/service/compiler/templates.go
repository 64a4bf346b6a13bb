package compiler

// 平台脚本内容。Gmail / Slack 的真实调用不在本系统范围内，脚本返回样例数据

// 脚本语言
const scriptLanguage = "deno"

// gmailSummaryScript 定时摘要：返回 {summary, count, urgent}
const gmailSummaryScript = `type Gmail = { token: string }

export async function main(gmail: Gmail, since_minutes: number = 1440) {
  const emails = [
    "Q4 Budget Review from Sarah - Needs your approval by EOD",
    "PR #234 approved - Ready to merge dark mode feature",
    "3 Slack messages in #engineering about deployment success"
  ]
  const summary = "Email Summary (last " + since_minutes + " minutes):\n\n" +
    emails.map((e, i) => (i + 1) + ". " + e).join("\n") +
    "\n\nTotal: " + emails.length + " emails"
  return { summary, count: emails.length, urgent: 1 }
}
`

// slackNotifyScript 通知脚本：message / channel / slack 资源
const slackNotifyScript = `type Slack = { token: string }

export async function main(message: string, channel: string = "#general", slack: Slack) {
  return { ok: true, channel, text: message }
}
`

// webhookTriggerScript flow 第一步：原样返回请求体
const webhookTriggerScript = `export async function main(webhook_body: any) { return webhook_body }`

// latestEmailsScript 立即执行：返回邮件列表
const latestEmailsScript = `export async function main(max_count: number = 3) {
  const emails = [
    {
      from: "sarah@company.com",
      subject: "Q4 Budget Review - Action Required",
      snippet: "Hi team, Please review the attached Q4 budget proposal...",
      received: "10 minutes ago"
    },
    {
      from: "github-noreply@github.com",
      subject: "[PR #234] Feature: Add dark mode support",
      snippet: "Your pull request has been approved and is ready to merge...",
      received: "25 minutes ago"
    },
    {
      from: "notifications@slack.com",
      subject: "3 new messages in #engineering",
      snippet: "John: The deployment succeeded. Sarah: Great work everyone!...",
      received: "1 hour ago"
    }
  ]
  return emails.slice(0, max_count)
}
`

// instantSummaryScript 立即执行：返回 {summary}
const instantSummaryScript = `export async function main(since_minutes: number = 60) {
  const emails = [
    "Q4 Budget Review from Sarah - Needs your approval by EOD",
    "PR #234 approved - Ready to merge dark mode feature",
    "3 Slack messages in #engineering about deployment success"
  ]
  const summary = "Email Summary (last " + since_minutes + " minutes):\n\n" +
    emails.map((e, i) => (i + 1) + ". " + e).join("\n") +
    "\n\nTotal: " + emails.length + " emails"
  return { summary, count: emails.length, urgent: 1 }
}
`

// genericScript 未知目标名的占位脚本
const genericScript = `export async function main(since_minutes: number = 60, max_count: number = 3) {
  return { summary: "Task completed (window " + since_minutes + " minutes, up to " + max_count + " items)" }
}
`
